package models

import "time"

// AccessLog is an append-only trail entry recorded for every PIN redemption
// attempt, successful or not.
type AccessLog struct {
	ID              string    `db:"id" json:"id"`
	PinID           string    `db:"pin_id" json:"pin_id"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	Success         bool      `db:"success" json:"success"`
	IPAddress       string    `db:"ip_address" json:"ip_address"`
	UserAgent       string    `db:"user_agent" json:"user_agent"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
