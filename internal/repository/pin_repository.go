package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edumark/school-results-api/internal/models"
)

// PinRepository persists PINs and their attempt trail.
type PinRepository struct {
	db *sqlx.DB
}

// NewPinRepository constructs the repository.
func NewPinRepository(db *sqlx.DB) *PinRepository {
	return &PinRepository{db: db}
}

const pinColumns = `id, code, school_id, session, term, is_used, used_by_adm_no, used_by_name,
       used_at, used_ip, max_attempts, expiry_date, generated_by, request_id, created_at`

const insertPinQuery = `INSERT INTO pins
        (id, code, school_id, session, term, is_used, used_by_adm_no, used_by_name, used_at, used_ip,
         max_attempts, expiry_date, generated_by, request_id, created_at)
        VALUES (:id, :code, :school_id, :session, :term, :is_used, :used_by_adm_no, :used_by_name, :used_at, :used_ip,
         :max_attempts, :expiry_date, :generated_by, :request_id, :created_at)`

// CreateBatch inserts a batch of PINs in a single transaction. Returns
// ErrDuplicate on a code collision so the caller can regenerate.
func (r *PinRepository) CreateBatch(ctx context.Context, pins []models.PIN) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insertPins(ctx, tx, pins); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pins: %w", err)
	}
	return nil
}

// FindByCode fetches a PIN by code within its school/session/term scope.
func (r *PinRepository) FindByCode(ctx context.Context, code, schoolID, session, term string) (*models.PIN, error) {
	query := fmt.Sprintf(`SELECT %s FROM pins WHERE code = $1 AND school_id = $2 AND session = $3 AND term = $4`, pinColumns)
	var pin models.PIN
	if err := r.db.GetContext(ctx, &pin, query, code, schoolID, session, term); err != nil {
		return nil, err
	}
	return &pin, nil
}

// ListBySchool returns PINs for a school scope, newest first.
func (r *PinRepository) ListBySchool(ctx context.Context, schoolID, session, term string) ([]models.PIN, error) {
	query := fmt.Sprintf(`SELECT %s FROM pins WHERE school_id = $1 AND session = $2 AND term = $3 ORDER BY created_at DESC`, pinColumns)
	var pins []models.PIN
	if err := r.db.SelectContext(ctx, &pins, query, schoolID, session, term); err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	return pins, nil
}

// CountAttempts returns the number of recorded redemption attempts for a PIN.
func (r *PinRepository) CountAttempts(ctx context.Context, pinID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM pin_attempts WHERE pin_id = $1", pinID); err != nil {
		return 0, fmt.Errorf("count pin attempts: %w", err)
	}
	return count, nil
}

// RecordAttempt appends an attempt row. Attempts are append-only and may be
// recorded even after the PIN has been used.
func (r *PinRepository) RecordAttempt(ctx context.Context, attempt *models.PinAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pin_attempts (id, pin_id, admission_number, success, ip_address, attempted_at)
        VALUES (:id, :pin_id, :admission_number, :success, :ip_address, :attempted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("record pin attempt: %w", err)
	}
	return nil
}

// RedeemParams carries the usage stamped onto a PIN at redemption.
type RedeemParams struct {
	PinID           string
	AdmissionNumber string
	StudentName     string
	IPAddress       string
	UsedAt          time.Time
}

// Redeem marks a PIN used and appends the successful attempt row in one
// transaction. The conditional update on is_used guarantees exactly-once
// consumption: the loser of a concurrent race gets sql.ErrNoRows and no
// partial state is ever committed.
func (r *PinRepository) Redeem(ctx context.Context, params RedeemParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const update = `UPDATE pins SET is_used = TRUE, used_by_adm_no = $2, used_by_name = $3, used_at = $4, used_ip = $5
        WHERE id = $1 AND is_used = FALSE`
	res, err := tx.ExecContext(ctx, update, params.PinID, params.AdmissionNumber, params.StudentName, params.UsedAt, params.IPAddress)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("mark pin used: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("check pin redeem rows: %w", err)
	}
	if rows == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	const insert = `INSERT INTO pin_attempts (id, pin_id, admission_number, success, ip_address, attempted_at)
        VALUES ($1, $2, $3, TRUE, $4, $5)`
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), params.PinID, params.AdmissionNumber, params.IPAddress, params.UsedAt); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("record successful attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pin redemption: %w", err)
	}
	return nil
}

func insertPins(ctx context.Context, tx *sqlx.Tx, pins []models.PIN) error {
	now := time.Now().UTC()
	for i := range pins {
		if pins[i].ID == "" {
			pins[i].ID = uuid.NewString()
		}
		if pins[i].CreatedAt.IsZero() {
			pins[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insertPinQuery, pins[i]); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert pin: %w", err)
		}
	}
	return nil
}
