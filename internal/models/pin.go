package models

import "time"

// PIN is a single-use credential gating public access to one approved result.
// Once IsUsed flips to true it never flips back.
type PIN struct {
	ID          string     `db:"id" json:"id"`
	Code        string     `db:"code" json:"code"`
	SchoolID    string     `db:"school_id" json:"school_id"`
	Session     string     `db:"session" json:"session"`
	Term        string     `db:"term" json:"term"`
	IsUsed      bool       `db:"is_used" json:"is_used"`
	UsedByAdmNo *string    `db:"used_by_adm_no" json:"used_by_adm_no,omitempty"`
	UsedByName  *string    `db:"used_by_name" json:"used_by_name,omitempty"`
	UsedAt      *time.Time `db:"used_at" json:"used_at,omitempty"`
	UsedIP      *string    `db:"used_ip" json:"used_ip,omitempty"`
	MaxAttempts int        `db:"max_attempts" json:"max_attempts"`
	ExpiryDate  time.Time  `db:"expiry_date" json:"expiry_date"`
	GeneratedBy string     `db:"generated_by" json:"generated_by"`
	RequestID   *string    `db:"request_id" json:"request_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Usage describes the redemption already recorded on a used PIN. It is
// returned in the PIN_ALREADY_USED error payload.
func (p *PIN) Usage() *PinUsage {
	if p == nil || !p.IsUsed {
		return nil
	}
	usage := &PinUsage{}
	if p.UsedByAdmNo != nil {
		usage.AdmissionNumber = *p.UsedByAdmNo
	}
	if p.UsedByName != nil {
		usage.StudentName = *p.UsedByName
	}
	if p.UsedAt != nil {
		usage.UsedAt = *p.UsedAt
	}
	return usage
}

// PinUsage is the public view of a completed redemption.
type PinUsage struct {
	AdmissionNumber string    `json:"admission_number"`
	StudentName     string    `json:"student_name"`
	UsedAt          time.Time `json:"used_at"`
}

// PinAttempt is an append-only record of a redemption attempt.
type PinAttempt struct {
	ID              string    `db:"id" json:"id"`
	PinID           string    `db:"pin_id" json:"pin_id"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	Success         bool      `db:"success" json:"success"`
	IPAddress       string    `db:"ip_address" json:"ip_address"`
	AttemptedAt     time.Time `db:"attempted_at" json:"attempted_at"`
}

// PinRequestStatus tracks a PIN request through review.
type PinRequestStatus string

const (
	PinRequestStatusPending  PinRequestStatus = "pending"
	PinRequestStatusApproved PinRequestStatus = "approved"
	PinRequestStatusRejected PinRequestStatus = "rejected"
)

// PinRequest is a school admin's petition for a batch of PINs. Only one
// pending request may exist per (school, session, term).
type PinRequest struct {
	ID              string           `db:"id" json:"id"`
	SchoolID        string           `db:"school_id" json:"school_id"`
	Session         string           `db:"session" json:"session"`
	Term            string           `db:"term" json:"term"`
	Quantity        int              `db:"quantity" json:"quantity"`
	Status          PinRequestStatus `db:"status" json:"status"`
	RequestedBy     string           `db:"requested_by" json:"requested_by"`
	ProcessedBy     *string          `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt     *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
	RejectionReason *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	GeneratedPINs   []PIN            `json:"generated_pins,omitempty"`
}

// PinRequestFilter captures filtering criteria for listing PIN requests.
type PinRequestFilter struct {
	SchoolID string
	Status   PinRequestStatus
	Page     int
	PageSize int
}
