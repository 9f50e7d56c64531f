package models

import "time"

// School is the tenant root. Every core entity is scoped by SchoolID.
type School struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Student represents a learner registered with a school. The admission
// number is unique within the school.
type Student struct {
	ID              string    `db:"id" json:"id"`
	SchoolID        string    `db:"school_id" json:"school_id"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	FullName        string    `db:"full_name" json:"full_name"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
