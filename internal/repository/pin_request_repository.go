package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edumark/school-results-api/internal/models"
)

// PinRequestRepository persists PIN request workflow data.
type PinRequestRepository struct {
	db *sqlx.DB
}

// NewPinRequestRepository constructs the repository.
func NewPinRequestRepository(db *sqlx.DB) *PinRequestRepository {
	return &PinRequestRepository{db: db}
}

const pinRequestColumns = `id, school_id, session, term, quantity, status, requested_by,
       processed_by, processed_at, rejection_reason, created_at`

// Create inserts a pending request. A partial unique index on
// (school_id, session, term) WHERE status = 'pending' enforces the
// one-pending-per-tuple invariant; violations map to ErrDuplicate.
func (r *PinRequestRepository) Create(ctx context.Context, request *models.PinRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.PinRequestStatusPending
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pin_requests
        (id, school_id, session, term, quantity, status, requested_by, processed_by, processed_at, rejection_reason, created_at)
        VALUES (:id, :school_id, :session, :term, :quantity, :status, :requested_by, :processed_by, :processed_at, :rejection_reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create pin request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *PinRequestRepository) GetByID(ctx context.Context, id string) (*models.PinRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM pin_requests WHERE id = $1", pinRequestColumns)
	var request models.PinRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, newest first.
func (r *PinRequestRepository) List(ctx context.Context, filter models.PinRequestFilter) ([]models.PinRequest, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	query := fmt.Sprintf("SELECT %s FROM pin_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		pinRequestColumns, strings.Join(conditions, " AND "), size, (page-1)*size)

	var requests []models.PinRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list pin requests: %w", err)
	}
	return requests, nil
}

// ApprovePinRequestParams groups the approval write set.
type ApprovePinRequestParams struct {
	ID          string
	ProcessedBy string
	ProcessedAt time.Time
	Pins        []models.PIN
}

// Approve flips a pending request to approved and inserts its PIN batch in
// one transaction. Either the status flip and every PIN commit together or
// nothing does; a non-pending request yields sql.ErrNoRows.
func (r *PinRequestRepository) Approve(ctx context.Context, params ApprovePinRequestParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const update = `UPDATE pin_requests SET status = 'approved', processed_by = $2, processed_at = $3
        WHERE id = $1 AND status = 'pending'`
	res, err := tx.ExecContext(ctx, update, params.ID, params.ProcessedBy, params.ProcessedAt)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("approve pin request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("check pin request rows: %w", err)
	}
	if rows == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := insertPins(ctx, tx, params.Pins); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pin request approval: %w", err)
	}
	return nil
}

// Reject flips a pending request to rejected with the supplied reason.
// A non-pending request yields sql.ErrNoRows.
func (r *PinRequestRepository) Reject(ctx context.Context, id, processedBy, reason string, processedAt time.Time) error {
	const query = `UPDATE pin_requests SET status = 'rejected', processed_by = $2, processed_at = $3, rejection_reason = $4
        WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, processedBy, processedAt, reason)
	if err != nil {
		return fmt.Errorf("reject pin request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check pin request rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PinsByRequest returns the PINs generated for an approved request.
func (r *PinRequestRepository) PinsByRequest(ctx context.Context, requestID string) ([]models.PIN, error) {
	query := fmt.Sprintf("SELECT %s FROM pins WHERE request_id = $1 ORDER BY created_at", pinColumns)
	var pins []models.PIN
	if err := r.db.SelectContext(ctx, &pins, query, requestID); err != nil {
		return nil, fmt.Errorf("list request pins: %w", err)
	}
	return pins, nil
}
