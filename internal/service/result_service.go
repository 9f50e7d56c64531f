package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edumark/school-results-api/internal/grading"
	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/repository"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
)

type resultStore interface {
	Create(ctx context.Context, result *models.Result) error
	FindByID(ctx context.Context, id string) (*models.Result, error)
	List(ctx context.Context, filter models.ResultFilter) ([]models.Result, int, error)
	UpdateScores(ctx context.Context, result *models.Result) error
	UpdateStatus(ctx context.Context, params repository.UpdateResultStatusParams) error
	Delete(ctx context.Context, id string) error
}

type studentResolver interface {
	FindStudentByID(ctx context.Context, id string) (*models.Student, error)
}

// ResultService drives results through the draft -> submitted -> approved
// workflow. Every status flip goes through a conditional update so concurrent
// actors cannot both win the same transition.
type ResultService struct {
	results  resultStore
	students studentResolver
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewResultService constructs the service.
func NewResultService(results resultStore, students studentResolver, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:  results,
		students: students,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// SubjectScoreInput is a caller-supplied subject line. Totals, grades and
// remarks are always derived server-side.
type SubjectScoreInput struct {
	SubjectName string  `json:"subject_name" validate:"required"`
	CA1         float64 `json:"ca1"`
	CA2         float64 `json:"ca2"`
	Exam        float64 `json:"exam"`
}

// CreateResultRequest carries a new draft result.
type CreateResultRequest struct {
	SchoolID       string              `json:"school_id" validate:"required"`
	StudentID      string              `json:"student_id" validate:"required"`
	Session        string              `json:"session" validate:"required"`
	Term           string              `json:"term" validate:"required,oneof=First Second Third"`
	Subjects       []SubjectScoreInput `json:"subjects" validate:"required,min=1,dive"`
	TeacherComment *string             `json:"teacher_comment,omitempty"`
}

// UpdateResultRequest carries replacement scores for a draft result.
type UpdateResultRequest struct {
	Subjects         []SubjectScoreInput `json:"subjects" validate:"required,min=1,dive"`
	TeacherComment   *string             `json:"teacher_comment,omitempty"`
	PrincipalComment *string             `json:"principal_comment,omitempty"`
}

// RejectResultRequest carries the mandatory rejection reason.
type RejectResultRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Create validates, grades and stores a new result in draft status.
func (s *ResultService) Create(ctx context.Context, claims *models.JWTClaims, req CreateResultRequest) (*models.Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !claims.CanAccessSchool(req.SchoolID) {
		return nil, appErrors.ErrForbidden
	}

	student, err := s.students.FindStudentByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.FromError(err)
	}
	if student.SchoolID != req.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student does not belong to this school")
	}

	subjects := toSubjectScores(req.Subjects)
	if err := grading.Validate(subjects); err != nil {
		return nil, err
	}
	computed, totalScore, average := grading.Compute(subjects)

	result := &models.Result{
		SchoolID:       req.SchoolID,
		StudentID:      req.StudentID,
		Session:        req.Session,
		Term:           req.Term,
		Subjects:       computed,
		TotalScore:     totalScore,
		AverageScore:   average,
		Status:         models.ResultStatusDraft,
		TeacherComment: req.TeacherComment,
		UploadedBy:     claims.UserID,
	}
	if err := s.results.Create(ctx, result); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrDuplicateResult
		}
		return nil, appErrors.FromError(err)
	}

	s.logger.Info("result created",
		zap.String("result_id", result.ID),
		zap.String("school_id", result.SchoolID),
		zap.String("student_id", result.StudentID))
	return result, nil
}

// Get fetches a single result, enforcing tenancy.
func (s *ResultService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	result, err := s.loadOwned(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns results for the caller's scope. Non super admins are pinned
// to their own school regardless of the requested filter.
func (s *ResultService) List(ctx context.Context, claims *models.JWTClaims, filter models.ResultFilter) ([]models.Result, int, error) {
	if claims.Role != models.RoleSuperAdmin {
		filter.SchoolID = claims.SchoolID
	}
	results, total, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.FromError(err)
	}
	return results, total, nil
}

// Update replaces the scores of a result and re-derives its grades. Only
// approved results are immutable; the status itself never changes here, a
// rejected result goes back to draft via Reopen.
func (s *ResultService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateResultRequest) (*models.Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	result, err := s.loadOwned(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if result.Status == models.ResultStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "approved results cannot be edited")
	}

	subjects := toSubjectScores(req.Subjects)
	if err := grading.Validate(subjects); err != nil {
		return nil, err
	}
	computed, totalScore, average := grading.Compute(subjects)

	result.Subjects = computed
	result.TotalScore = totalScore
	result.AverageScore = average
	if req.TeacherComment != nil {
		result.TeacherComment = req.TeacherComment
	}
	if req.PrincipalComment != nil {
		result.PrincipalComment = req.PrincipalComment
	}
	if err := s.results.UpdateScores(ctx, result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "result was approved by another actor")
		}
		return nil, appErrors.FromError(err)
	}
	return result, nil
}

// Submit moves a draft result into review.
func (s *ResultService) Submit(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	return s.transition(ctx, claims, id, models.ResultStatusDraft, models.ResultStatusSubmitted, nil)
}

// Approve finalises a submitted result, stamping the approver. Approved
// results become immutable and publicly verifiable.
func (s *ResultService) Approve(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	now := s.now().UTC()
	return s.transition(ctx, claims, id, models.ResultStatusSubmitted, models.ResultStatusApproved, func(p *repository.UpdateResultStatusParams) {
		p.ApprovedBy = &claims.UserID
		p.ApprovedAt = &now
	})
}

// Reject sends a submitted result back with a mandatory reason.
func (s *ResultService) Reject(ctx context.Context, claims *models.JWTClaims, id string, req RejectResultRequest) (*models.Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	return s.transition(ctx, claims, id, models.ResultStatusSubmitted, models.ResultStatusRejected, func(p *repository.UpdateResultStatusParams) {
		p.RejectionReason = &req.Reason
	})
}

// Reopen returns a rejected result to draft so scores can be corrected. The
// rejection reason is cleared on the way back.
func (s *ResultService) Reopen(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	return s.transition(ctx, claims, id, models.ResultStatusRejected, models.ResultStatusDraft, nil)
}

// Delete removes a result that has not been approved.
func (s *ResultService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	result, err := s.loadOwned(ctx, claims, id)
	if err != nil {
		return err
	}
	if result.Status == models.ResultStatusApproved {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "approved results cannot be deleted")
	}
	if err := s.results.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "result was approved by another actor")
		}
		return appErrors.FromError(err)
	}
	s.logger.Info("result deleted", zap.String("result_id", id))
	return nil
}

func (s *ResultService) transition(ctx context.Context, claims *models.JWTClaims, id string,
	from, to models.ResultStatus, mutate func(*repository.UpdateResultStatusParams)) (*models.Result, error) {
	result, err := s.loadOwned(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if result.Status != from {
		return nil, appErrors.ErrInvalidTransition
	}

	params := repository.UpdateResultStatusParams{ID: id, From: from, To: to}
	if mutate != nil {
		mutate(&params)
	}
	if err := s.results.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against a concurrent transition.
			return nil, appErrors.ErrInvalidTransition
		}
		return nil, appErrors.FromError(err)
	}

	result.Status = to
	result.ApprovedBy = params.ApprovedBy
	result.ApprovedAt = params.ApprovedAt
	result.RejectionReason = params.RejectionReason
	s.logger.Info("result status changed",
		zap.String("result_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", claims.UserID))
	return result, nil
}

func (s *ResultService) loadOwned(ctx context.Context, claims *models.JWTClaims, id string) (*models.Result, error) {
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.FromError(err)
	}
	if !claims.CanAccessSchool(result.SchoolID) {
		return nil, appErrors.ErrForbidden
	}
	return result, nil
}

func toSubjectScores(inputs []SubjectScoreInput) []models.SubjectScore {
	subjects := make([]models.SubjectScore, len(inputs))
	for i, in := range inputs {
		subjects[i] = models.SubjectScore{
			SubjectName: in.SubjectName,
			CA1:         in.CA1,
			CA2:         in.CA2,
			Exam:        in.Exam,
		}
	}
	return subjects
}
