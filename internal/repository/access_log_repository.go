package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edumark/school-results-api/internal/models"
)

// AccessLogRepository stores the append-only redemption audit trail.
type AccessLogRepository struct {
	db *sqlx.DB
}

// NewAccessLogRepository constructs the repository.
func NewAccessLogRepository(db *sqlx.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

// Create appends an access log entry.
func (r *AccessLogRepository) Create(ctx context.Context, log *models.AccessLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO access_logs (id, pin_id, admission_number, success, ip_address, user_agent, created_at)
        VALUES (:id, :pin_id, :admission_number, :success, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create access log: %w", err)
	}
	return nil
}

// ListByPin returns the audit trail for a PIN, oldest first.
func (r *AccessLogRepository) ListByPin(ctx context.Context, pinID string) ([]models.AccessLog, error) {
	const query = `SELECT id, pin_id, admission_number, success, ip_address, user_agent, created_at
        FROM access_logs WHERE pin_id = $1 ORDER BY created_at`
	var logs []models.AccessLog
	if err := r.db.SelectContext(ctx, &logs, query, pinID); err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return logs, nil
}
