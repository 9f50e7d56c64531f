package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/repository"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	FindStudentByID(ctx context.Context, id string) (*models.Student, error)
	CreateStudent(ctx context.Context, student *models.Student) error
	NextAdmissionNumber(ctx context.Context, schoolID string) (int, error)
}

// StudentService registers and resolves students within a school.
type StudentService struct {
	schools  studentStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(schools studentStore, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{schools: schools, validate: validator.New(), logger: logger}
}

// RegisterStudentRequest carries a new student. When AdmissionNumber is
// empty one is allocated from the school's sequence.
type RegisterStudentRequest struct {
	SchoolID        string `json:"school_id" validate:"required"`
	FullName        string `json:"full_name" validate:"required"`
	AdmissionNumber string `json:"admission_number,omitempty"`
}

// Register creates a student, allocating an admission number from the
// per-school sequence when none is supplied.
func (s *StudentService) Register(ctx context.Context, claims *models.JWTClaims, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !claims.CanAccessSchool(req.SchoolID) {
		return nil, appErrors.ErrForbidden
	}

	school, err := s.schools.FindByID(ctx, req.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.FromError(err)
	}

	admissionNumber := req.AdmissionNumber
	if admissionNumber == "" {
		seq, err := s.schools.NextAdmissionNumber(ctx, school.ID)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		admissionNumber = fmt.Sprintf("%s/%04d", school.Code, seq)
	}

	student := &models.Student{
		SchoolID:        school.ID,
		AdmissionNumber: admissionNumber,
		FullName:        req.FullName,
		Active:          true,
	}
	if err := s.schools.CreateStudent(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already taken")
		}
		return nil, appErrors.FromError(err)
	}

	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("school_id", student.SchoolID),
		zap.String("admission_number", student.AdmissionNumber))
	return student, nil
}

// Get fetches a student, enforcing tenancy.
func (s *StudentService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Student, error) {
	student, err := s.schools.FindStudentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.FromError(err)
	}
	if !claims.CanAccessSchool(student.SchoolID) {
		return nil, appErrors.ErrForbidden
	}
	return student, nil
}
