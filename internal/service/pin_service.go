package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/repository"
	"github.com/edumark/school-results-api/pkg/config"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
)

// codeAlphabet omits ambiguous characters (I, O, 0, 1) so PINs survive
// being read over the phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// maxCodeRetries bounds regeneration after a unique-constraint collision.
const maxCodeRetries = 5

type pinStore interface {
	CreateBatch(ctx context.Context, pins []models.PIN) error
	FindByCode(ctx context.Context, code, schoolID, session, term string) (*models.PIN, error)
	ListBySchool(ctx context.Context, schoolID, session, term string) ([]models.PIN, error)
	CountAttempts(ctx context.Context, pinID string) (int, error)
	RecordAttempt(ctx context.Context, attempt *models.PinAttempt) error
	Redeem(ctx context.Context, params repository.RedeemParams) error
}

type pinRequestStore interface {
	Create(ctx context.Context, request *models.PinRequest) error
	GetByID(ctx context.Context, id string) (*models.PinRequest, error)
	List(ctx context.Context, filter models.PinRequestFilter) ([]models.PinRequest, error)
	Approve(ctx context.Context, params repository.ApprovePinRequestParams) error
	Reject(ctx context.Context, id, processedBy, reason string, processedAt time.Time) error
	PinsByRequest(ctx context.Context, requestID string) ([]models.PIN, error)
}

type schoolStore interface {
	FindByCode(ctx context.Context, code string) (*models.School, error)
	FindStudent(ctx context.Context, schoolID, admissionNumber string) (*models.Student, error)
}

type approvedResultStore interface {
	FindApproved(ctx context.Context, schoolID, studentID, session, term string) (*models.Result, error)
}

// PinService owns the PIN lifecycle: issuance, the request/review workflow
// and single-use redemption against approved results.
type PinService struct {
	pins     pinStore
	requests pinRequestStore
	schools  schoolStore
	results  approvedResultStore
	auditor  *AccessAuditor
	cfg      config.PinConfig
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewPinService constructs the service.
func NewPinService(pins pinStore, requests pinRequestStore, schools schoolStore,
	results approvedResultStore, auditor *AccessAuditor, cfg config.PinConfig, logger *zap.Logger) *PinService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 14
	}
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = 3
	}
	if cfg.DefaultExpiryDays <= 0 {
		cfg.DefaultExpiryDays = 90
	}
	return &PinService{
		pins:     pins,
		requests: requests,
		schools:  schools,
		results:  results,
		auditor:  auditor,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// GeneratePinsRequest carries a direct issuance order.
type GeneratePinsRequest struct {
	SchoolID    string `json:"school_id" validate:"required"`
	Session     string `json:"session" validate:"required"`
	Term        string `json:"term" validate:"required,oneof=First Second Third"`
	Quantity    int    `json:"quantity" validate:"required,min=1,max=1000"`
	MaxAttempts int    `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	ExpiryDays  int    `json:"expiry_days" validate:"omitempty,min=1,max=365"`
}

// Generate issues a batch of PINs directly, bypassing the request workflow.
// Reserved for super admins at the routing layer.
func (s *PinService) Generate(ctx context.Context, claims *models.JWTClaims, req GeneratePinsRequest) ([]models.PIN, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !claims.CanAccessSchool(req.SchoolID) {
		return nil, appErrors.ErrForbidden
	}

	pins, err := s.issue(ctx, issueParams{
		schoolID:    req.SchoolID,
		session:     req.Session,
		term:        req.Term,
		quantity:    req.Quantity,
		maxAttempts: req.MaxAttempts,
		expiryDays:  req.ExpiryDays,
		generatedBy: claims.UserID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("pins generated",
		zap.String("school_id", req.SchoolID),
		zap.String("session", req.Session),
		zap.String("term", req.Term),
		zap.Int("quantity", len(pins)))
	return pins, nil
}

// RequestPinsRequest carries a school admin's petition for PINs.
type RequestPinsRequest struct {
	SchoolID string `json:"school_id" validate:"required"`
	Session  string `json:"session" validate:"required"`
	Term     string `json:"term" validate:"required,oneof=First Second Third"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=1000"`
}

// RequestPins opens a pending PIN request. At most one pending request may
// exist per (school, session, term).
func (s *PinService) RequestPins(ctx context.Context, claims *models.JWTClaims, req RequestPinsRequest) (*models.PinRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !claims.CanAccessSchool(req.SchoolID) {
		return nil, appErrors.ErrForbidden
	}

	request := &models.PinRequest{
		SchoolID:    req.SchoolID,
		Session:     req.Session,
		Term:        req.Term,
		Quantity:    req.Quantity,
		Status:      models.PinRequestStatusPending,
		RequestedBy: claims.UserID,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrDuplicatePendingRequest
		}
		return nil, appErrors.FromError(err)
	}
	s.logger.Info("pin request opened",
		zap.String("request_id", request.ID),
		zap.String("school_id", request.SchoolID),
		zap.Int("quantity", request.Quantity))
	return request, nil
}

// GetRequest fetches a request with its generated PINs when approved.
func (s *PinService) GetRequest(ctx context.Context, claims *models.JWTClaims, id string) (*models.PinRequest, error) {
	request, err := s.loadRequest(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if request.Status == models.PinRequestStatusApproved {
		pins, err := s.requests.PinsByRequest(ctx, request.ID)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		request.GeneratedPINs = pins
	}
	return request, nil
}

// ListRequests returns requests visible to the caller. Non super admins are
// pinned to their own school.
func (s *PinService) ListRequests(ctx context.Context, claims *models.JWTClaims, filter models.PinRequestFilter) ([]models.PinRequest, error) {
	if claims.Role != models.RoleSuperAdmin {
		filter.SchoolID = claims.SchoolID
	}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return requests, nil
}

// ApproveRequest approves a pending request, generating its PIN batch in the
// same transaction as the status flip. A collision on the generated codes is
// retried with fresh codes.
func (s *PinService) ApproveRequest(ctx context.Context, claims *models.JWTClaims, id string) (*models.PinRequest, error) {
	request, err := s.loadRequest(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.PinRequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "pin request has already been processed")
	}

	now := s.now().UTC()
	var pins []models.PIN
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		pins, err = s.mint(request.SchoolID, request.Session, request.Term, request.Quantity,
			s.cfg.DefaultMaxAttempts, s.cfg.DefaultExpiryDays, claims.UserID, &request.ID)
		if err != nil {
			return nil, err
		}
		err = s.requests.Approve(ctx, repository.ApprovePinRequestParams{
			ID:          request.ID,
			ProcessedBy: claims.UserID,
			ProcessedAt: now,
			Pins:        pins,
		})
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "pin request was processed by another actor")
		}
		return nil, appErrors.FromError(err)
	}
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	request.Status = models.PinRequestStatusApproved
	request.ProcessedBy = &claims.UserID
	request.ProcessedAt = &now
	request.GeneratedPINs = pins
	s.logger.Info("pin request approved",
		zap.String("request_id", request.ID),
		zap.Int("quantity", len(pins)),
		zap.String("actor", claims.UserID))
	return request, nil
}

// RejectRequest rejects a pending request with a mandatory reason.
func (s *PinService) RejectRequest(ctx context.Context, claims *models.JWTClaims, id, reason string) (*models.PinRequest, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	request, err := s.loadRequest(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.PinRequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "pin request has already been processed")
	}

	now := s.now().UTC()
	if err := s.requests.Reject(ctx, id, claims.UserID, reason, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "pin request was processed by another actor")
		}
		return nil, appErrors.FromError(err)
	}

	request.Status = models.PinRequestStatusRejected
	request.ProcessedBy = &claims.UserID
	request.ProcessedAt = &now
	request.RejectionReason = &reason
	return request, nil
}

// ListPins returns the PINs for a school scope, enforcing tenancy.
func (s *PinService) ListPins(ctx context.Context, claims *models.JWTClaims, schoolID, session, term string) ([]models.PIN, error) {
	if !claims.CanAccessSchool(schoolID) {
		return nil, appErrors.ErrForbidden
	}
	pins, err := s.pins.ListBySchool(ctx, schoolID, session, term)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return pins, nil
}

// VerifyResultRequest is the public redemption payload. IP and user agent
// are stamped by the transport layer, never by the caller.
type VerifyResultRequest struct {
	SchoolCode      string `json:"school_code" validate:"required"`
	AdmissionNumber string `json:"admission_number" validate:"required"`
	Session         string `json:"session" validate:"required"`
	Term            string `json:"term" validate:"required,oneof=First Second Third"`
	PinCode         string `json:"pin_code" validate:"required"`
	IPAddress       string `json:"-"`
	UserAgent       string `json:"-"`
}

// VerifyResultResponse is the public view returned on a successful redemption.
type VerifyResultResponse struct {
	SchoolName      string         `json:"school_name"`
	StudentName     string         `json:"student_name"`
	AdmissionNumber string         `json:"admission_number"`
	Result          *models.Result `json:"result"`
}

// VerifyResult redeems a PIN against an approved result. School and student
// are resolved before the PIN is even looked at, so a bad school code or
// admission number never touches the PIN's attempt budget. The PIN itself is
// consumed exactly once: a conditional update decides the winner of any
// concurrent race, and every attempt lands in the audit trail.
func (s *PinService) VerifyResult(ctx context.Context, req VerifyResultRequest) (*VerifyResultResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	school, err := s.schools.FindByCode(ctx, req.SchoolCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.auditor.Miss("school_not_found")
			return nil, appErrors.ErrSchoolNotFound
		}
		return nil, appErrors.FromError(err)
	}
	if !school.Active {
		s.auditor.Miss("school_not_found")
		return nil, appErrors.ErrSchoolNotFound
	}

	student, err := s.schools.FindStudent(ctx, school.ID, req.AdmissionNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.auditor.Miss("student_not_found")
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.FromError(err)
	}
	if !student.Active {
		s.auditor.Miss("student_not_found")
		return nil, appErrors.ErrStudentNotFound
	}

	pin, err := s.pins.FindByCode(ctx, req.PinCode, school.ID, req.Session, req.Term)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.auditor.Miss("pin_not_found")
			return nil, appErrors.ErrPinNotFound
		}
		return nil, appErrors.FromError(err)
	}

	now := s.now().UTC()
	if now.After(pin.ExpiryDate) {
		s.audit(ctx, pin.ID, req, false, "expired")
		return nil, appErrors.ErrPinExpired
	}
	if pin.IsUsed {
		s.audit(ctx, pin.ID, req, false, "already_used")
		return nil, appErrors.WithDetails(appErrors.ErrPinAlreadyUsed, pin.Usage())
	}

	attempts, err := s.pins.CountAttempts(ctx, pin.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if attempts >= pin.MaxAttempts {
		s.auditor.Record(ctx, models.AccessLog{
			PinID:           pin.ID,
			AdmissionNumber: req.AdmissionNumber,
			Success:         false,
			IPAddress:       req.IPAddress,
			UserAgent:       req.UserAgent,
		}, "attempts_exhausted")
		return nil, appErrors.ErrAttemptsExhausted
	}

	result, err := s.results.FindApproved(ctx, school.ID, student.ID, req.Session, req.Term)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordFailure(ctx, pin.ID, req)
			s.audit(ctx, pin.ID, req, false, "result_not_available")
			return nil, appErrors.ErrResultNotAvailable
		}
		return nil, appErrors.FromError(err)
	}

	err = s.pins.Redeem(ctx, repository.RedeemParams{
		PinID:           pin.ID,
		AdmissionNumber: student.AdmissionNumber,
		StudentName:     student.FullName,
		IPAddress:       req.IPAddress,
		UsedAt:          now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent redemption won; surface the recorded usage.
			s.audit(ctx, pin.ID, req, false, "already_used")
			used, ferr := s.pins.FindByCode(ctx, req.PinCode, school.ID, req.Session, req.Term)
			if ferr == nil {
				return nil, appErrors.WithDetails(appErrors.ErrPinAlreadyUsed, used.Usage())
			}
			return nil, appErrors.ErrPinAlreadyUsed
		}
		return nil, appErrors.FromError(err)
	}

	s.audit(ctx, pin.ID, req, true, "success")
	s.logger.Info("pin redeemed",
		zap.String("pin_id", pin.ID),
		zap.String("school_id", school.ID),
		zap.String("admission_number", student.AdmissionNumber))

	return &VerifyResultResponse{
		SchoolName:      school.Name,
		StudentName:     student.FullName,
		AdmissionNumber: student.AdmissionNumber,
		Result:          result,
	}, nil
}

type issueParams struct {
	schoolID    string
	session     string
	term        string
	quantity    int
	maxAttempts int
	expiryDays  int
	generatedBy string
}

func (s *PinService) issue(ctx context.Context, p issueParams) ([]models.PIN, error) {
	var pins []models.PIN
	var err error
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		pins, err = s.mint(p.schoolID, p.session, p.term, p.quantity, p.maxAttempts, p.expiryDays, p.generatedBy, nil)
		if err != nil {
			return nil, err
		}
		err = s.pins.CreateBatch(ctx, pins)
		if err == nil {
			return pins, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.FromError(err)
		}
	}
	return nil, appErrors.FromError(err)
}

func (s *PinService) mint(schoolID, session, term string, quantity, maxAttempts, expiryDays int,
	generatedBy string, requestID *string) ([]models.PIN, error) {
	if maxAttempts <= 0 {
		maxAttempts = s.cfg.DefaultMaxAttempts
	}
	if expiryDays <= 0 {
		expiryDays = s.cfg.DefaultExpiryDays
	}
	expiry := s.now().UTC().AddDate(0, 0, expiryDays)

	pins := make([]models.PIN, quantity)
	for i := range pins {
		code, err := generateCode(s.cfg.CodeLength)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		pins[i] = models.PIN{
			Code:        code,
			SchoolID:    schoolID,
			Session:     session,
			Term:        term,
			MaxAttempts: maxAttempts,
			ExpiryDate:  expiry,
			GeneratedBy: generatedBy,
			RequestID:   requestID,
		}
	}
	return pins, nil
}

func (s *PinService) loadRequest(ctx context.Context, claims *models.JWTClaims, id string) (*models.PinRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pin request not found")
		}
		return nil, appErrors.FromError(err)
	}
	if !claims.CanAccessSchool(request.SchoolID) {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

func (s *PinService) recordFailure(ctx context.Context, pinID string, req VerifyResultRequest) {
	err := s.pins.RecordAttempt(ctx, &models.PinAttempt{
		PinID:           pinID,
		AdmissionNumber: req.AdmissionNumber,
		Success:         false,
		IPAddress:       req.IPAddress,
	})
	if err != nil {
		s.logger.Warn("failed to record pin attempt", zap.String("pin_id", pinID), zap.Error(err))
	}
}

func (s *PinService) audit(ctx context.Context, pinID string, req VerifyResultRequest, success bool, outcome string) {
	s.auditor.Record(ctx, models.AccessLog{
		PinID:           pinID,
		AdmissionNumber: req.AdmissionNumber,
		Success:         success,
		IPAddress:       req.IPAddress,
		UserAgent:       req.UserAgent,
	}, outcome)
}

// generateCode draws a cryptographically random code from the PIN alphabet.
func generateCode(length int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
