package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/pkg/jobs"
)

type accessLogStore interface {
	Create(ctx context.Context, log *models.AccessLog) error
}

// AccessAuditor records every redemption attempt for abuse detection. It is
// strictly fire-and-forget: a failed write is logged and swallowed so it can
// never fail the redemption itself.
type AccessAuditor struct {
	store   accessLogStore
	metrics *MetricsService
	logger  *zap.Logger
	queue   *jobs.Queue
}

// AuditorOption customises the auditor.
type AuditorOption func(*AccessAuditor)

// WithAuditQueue moves audit writes off the request path onto a background
// queue. The queue handler owns the actual persistence.
func WithAuditQueue(queue *jobs.Queue) AuditorOption {
	return func(a *AccessAuditor) {
		a.queue = queue
	}
}

// NewAccessAuditor constructs the auditor.
func NewAccessAuditor(store accessLogStore, metrics *MetricsService, logger *zap.Logger, opts ...AuditorOption) *AccessAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	auditor := &AccessAuditor{store: store, metrics: metrics, logger: logger}
	for _, opt := range opts {
		opt(auditor)
	}
	return auditor
}

// Miss counts an attempt that never resolved to a PIN, so there is no row
// to anchor an audit entry to.
func (a *AccessAuditor) Miss(outcome string) {
	if a == nil {
		return
	}
	a.metrics.ObserveRedemption(outcome)
}

// Record appends an access log entry and bumps the redemption counter.
func (a *AccessAuditor) Record(ctx context.Context, entry models.AccessLog, outcome string) {
	if a == nil {
		return
	}
	a.metrics.ObserveRedemption(outcome)
	if a.queue != nil {
		err := a.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "access-log", Payload: entry})
		if err == nil {
			return
		}
		a.logger.Warn("audit queue unavailable, writing inline", zap.Error(err))
	}
	if a.store == nil {
		return
	}
	if err := a.store.Create(ctx, &entry); err != nil {
		a.logger.Warn("failed to persist access log",
			zap.String("pin_id", entry.PinID),
			zap.Bool("success", entry.Success),
			zap.Error(err))
	}
}
