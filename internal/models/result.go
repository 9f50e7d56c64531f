package models

import "time"

// ResultStatus tracks a result through the approval workflow.
type ResultStatus string

const (
	ResultStatusDraft     ResultStatus = "draft"
	ResultStatusSubmitted ResultStatus = "submitted"
	ResultStatusApproved  ResultStatus = "approved"
	ResultStatusRejected  ResultStatus = "rejected"
)

// Term names the academic term within a session.
const (
	TermFirst  = "First"
	TermSecond = "Second"
	TermThird  = "Third"
)

// SubjectScore is a single subject line on a result sheet. Total, Grade and
// Remark are derived by the grading policy, never supplied by callers.
type SubjectScore struct {
	ID          string  `db:"id" json:"id,omitempty"`
	ResultID    string  `db:"result_id" json:"-"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	CA1         float64 `db:"ca1" json:"ca1"`
	CA2         float64 `db:"ca2" json:"ca2"`
	Exam        float64 `db:"exam" json:"exam"`
	Total       float64 `db:"total" json:"total"`
	Grade       string  `db:"grade" json:"grade"`
	Remark      string  `db:"remark" json:"remark"`
	SortOrder   int     `db:"sort_order" json:"-"`
}

// Result is a student's per-term result record. At most one exists per
// (school, student, session, term).
type Result struct {
	ID               string         `db:"id" json:"id"`
	SchoolID         string         `db:"school_id" json:"school_id"`
	StudentID        string         `db:"student_id" json:"student_id"`
	Session          string         `db:"session" json:"session"`
	Term             string         `db:"term" json:"term"`
	Subjects         []SubjectScore `json:"subjects,omitempty"`
	TotalScore       float64        `db:"total_score" json:"total_score"`
	AverageScore     float64        `db:"average_score" json:"average_score"`
	Position         *int           `db:"position" json:"position,omitempty"`
	TotalStudents    *int           `db:"total_students" json:"total_students,omitempty"`
	Status           ResultStatus   `db:"status" json:"status"`
	TeacherComment   *string        `db:"teacher_comment" json:"teacher_comment,omitempty"`
	PrincipalComment *string        `db:"principal_comment" json:"principal_comment,omitempty"`
	RejectionReason  *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ApprovedBy       *string        `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time     `db:"approved_at" json:"approved_at,omitempty"`
	UploadedBy       string         `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// ResultFilter captures filtering criteria for listing results.
type ResultFilter struct {
	SchoolID  string
	StudentID string
	Session   string
	Term      string
	Status    ResultStatus
	Page      int
	PageSize  int
}
