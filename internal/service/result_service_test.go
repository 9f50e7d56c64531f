package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/repository"
	appErrors "github.com/edumark/school-results-api/pkg/errors"
)

type resultStoreStub struct {
	results     map[string]*models.Result
	statusErr   error
	nextID      int
	createCalls int
}

func newResultStoreStub() *resultStoreStub {
	return &resultStoreStub{results: make(map[string]*models.Result)}
}

func (s *resultStoreStub) Create(ctx context.Context, result *models.Result) error {
	s.createCalls++
	for _, existing := range s.results {
		if existing.SchoolID == result.SchoolID && existing.StudentID == result.StudentID &&
			existing.Session == result.Session && existing.Term == result.Term {
			return repository.ErrDuplicate
		}
	}
	s.nextID++
	if result.ID == "" {
		result.ID = "result-" + string(rune('0'+s.nextID))
	}
	copy := *result
	s.results[result.ID] = &copy
	return nil
}

func (s *resultStoreStub) FindByID(ctx context.Context, id string) (*models.Result, error) {
	if result, ok := s.results[id]; ok {
		copy := *result
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *resultStoreStub) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, int, error) {
	var out []models.Result
	for _, result := range s.results {
		if filter.SchoolID != "" && result.SchoolID != filter.SchoolID {
			continue
		}
		out = append(out, *result)
	}
	return out, len(out), nil
}

func (s *resultStoreStub) UpdateScores(ctx context.Context, result *models.Result) error {
	existing, ok := s.results[result.ID]
	if !ok || existing.Status == models.ResultStatusApproved {
		return sql.ErrNoRows
	}
	copy := *result
	s.results[result.ID] = &copy
	return nil
}

func (s *resultStoreStub) UpdateStatus(ctx context.Context, params repository.UpdateResultStatusParams) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	result, ok := s.results[params.ID]
	if !ok || result.Status != params.From {
		return sql.ErrNoRows
	}
	result.Status = params.To
	result.ApprovedBy = params.ApprovedBy
	result.ApprovedAt = params.ApprovedAt
	result.RejectionReason = params.RejectionReason
	return nil
}

func (s *resultStoreStub) Delete(ctx context.Context, id string) error {
	result, ok := s.results[id]
	if !ok || result.Status == models.ResultStatusApproved {
		return sql.ErrNoRows
	}
	delete(s.results, id)
	return nil
}

type studentResolverStub struct {
	students map[string]*models.Student
}

func (s *studentResolverStub) FindStudentByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		copy := *student
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func newResultFixture() (*ResultService, *resultStoreStub) {
	store := newResultStoreStub()
	students := &studentResolverStub{students: map[string]*models.Student{
		"student-1": {ID: "student-1", SchoolID: "school-1", AdmissionNumber: "GHS/0001", FullName: "Ada Obi", Active: true},
	}}
	return NewResultService(store, students, nil), store
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: "school-1"}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleSchoolAdmin, SchoolID: "school-1"}
}

func validCreateRequest() CreateResultRequest {
	return CreateResultRequest{
		SchoolID:  "school-1",
		StudentID: "student-1",
		Session:   "2025/2026",
		Term:      models.TermFirst,
		Subjects: []SubjectScoreInput{
			{SubjectName: "Mathematics", CA1: 8, CA2: 9, Exam: 70},
		},
	}
}

func TestResultServiceCreateGradesSubjects(t *testing.T) {
	svc, _ := newResultFixture()

	result, err := svc.Create(context.Background(), teacherClaims(), validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusDraft, result.Status)
	require.Equal(t, "teacher-1", result.UploadedBy)
	require.Len(t, result.Subjects, 1)
	require.Equal(t, 87.0, result.Subjects[0].Total)
	require.Equal(t, "A", result.Subjects[0].Grade)
	require.Equal(t, "Excellent", result.Subjects[0].Remark)
	require.Equal(t, 87.0, result.TotalScore)
	require.Equal(t, 87.0, result.AverageScore)
}

func TestResultServiceCreateDuplicate(t *testing.T) {
	svc, _ := newResultFixture()

	_, err := svc.Create(context.Background(), teacherClaims(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), teacherClaims(), validCreateRequest())
	require.ErrorIs(t, err, appErrors.ErrDuplicateResult)
}

func TestResultServiceCreateForeignSchool(t *testing.T) {
	svc, _ := newResultFixture()

	claims := &models.JWTClaims{UserID: "teacher-9", Role: models.RoleTeacher, SchoolID: "school-9"}
	_, err := svc.Create(context.Background(), claims, validCreateRequest())
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestResultServiceCreateRejectsOutOfRangeScores(t *testing.T) {
	svc, _ := newResultFixture()

	req := validCreateRequest()
	req.Subjects[0].Exam = 81
	_, err := svc.Create(context.Background(), teacherClaims(), req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResultServiceWorkflowTransitions(t *testing.T) {
	svc, store := newResultFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, teacherClaims(), validCreateRequest())
	require.NoError(t, err)

	// draft -> approved is not allowed.
	_, err = svc.Approve(ctx, adminClaims(), created.ID)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	submitted, err := svc.Submit(ctx, teacherClaims(), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusSubmitted, submitted.Status)

	// submitted -> submitted is not allowed.
	_, err = svc.Submit(ctx, teacherClaims(), created.ID)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	approved, err := svc.Approve(ctx, adminClaims(), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	require.Equal(t, "admin-1", *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	// Approved results are terminal.
	_, err = svc.Reject(ctx, adminClaims(), created.ID, RejectResultRequest{Reason: "late"})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	err = svc.Delete(ctx, adminClaims(), created.ID)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	require.Contains(t, store.results, created.ID)
}

func TestResultServiceRejectAndReopen(t *testing.T) {
	svc, _ := newResultFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, teacherClaims(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, teacherClaims(), created.ID)
	require.NoError(t, err)

	// Rejection requires a reason.
	_, err = svc.Reject(ctx, adminClaims(), created.ID, RejectResultRequest{})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	rejected, err := svc.Reject(ctx, adminClaims(), created.ID, RejectResultRequest{Reason: "scores look wrong"})
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	require.Equal(t, "scores look wrong", *rejected.RejectionReason)

	reopened, err := svc.Reopen(ctx, teacherClaims(), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusDraft, reopened.Status)
	require.Nil(t, reopened.RejectionReason)
}

func TestResultServiceTransitionLostRace(t *testing.T) {
	svc, store := newResultFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, teacherClaims(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, teacherClaims(), created.ID)
	require.NoError(t, err)

	// The conditional update loses even though the loaded status matched.
	store.statusErr = sql.ErrNoRows
	_, err = svc.Approve(ctx, adminClaims(), created.ID)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestResultServiceUpdateBlockedOnlyWhenApproved(t *testing.T) {
	svc, store := newResultFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, teacherClaims(), validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, teacherClaims(), created.ID, UpdateResultRequest{
		Subjects: []SubjectScoreInput{
			{SubjectName: "Mathematics", CA1: 5, CA2: 5, Exam: 45},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 55.0, updated.TotalScore)
	require.Equal(t, "D", updated.Subjects[0].Grade)
	require.Equal(t, "Good", updated.Subjects[0].Remark)

	// A submitted result stays editable and keeps its status.
	_, err = svc.Submit(ctx, teacherClaims(), created.ID)
	require.NoError(t, err)
	updated, err = svc.Update(ctx, teacherClaims(), created.ID, UpdateResultRequest{
		Subjects: []SubjectScoreInput{{SubjectName: "Mathematics", CA1: 9, CA2: 9, Exam: 60}},
	})
	require.NoError(t, err)
	require.Equal(t, 78.0, updated.TotalScore)
	require.Equal(t, models.ResultStatusSubmitted, store.results[created.ID].Status)

	_, err = svc.Approve(ctx, adminClaims(), created.ID)
	require.NoError(t, err)
	_, err = svc.Update(ctx, teacherClaims(), created.ID, UpdateResultRequest{
		Subjects: []SubjectScoreInput{{SubjectName: "Mathematics", CA1: 1, CA2: 1, Exam: 1}},
	})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestResultServiceListPinsTenant(t *testing.T) {
	svc, store := newResultFixture()
	ctx := context.Background()

	store.results["foreign"] = &models.Result{ID: "foreign", SchoolID: "school-9", Status: models.ResultStatusDraft}
	_, err := svc.Create(ctx, teacherClaims(), validCreateRequest())
	require.NoError(t, err)

	results, total, err := svc.List(ctx, teacherClaims(), models.ResultFilter{SchoolID: "school-9"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	for _, result := range results {
		require.Equal(t, "school-1", result.SchoolID)
	}
}

func TestResultServiceGetNotFound(t *testing.T) {
	svc, _ := newResultFixture()

	_, err := svc.Get(context.Background(), teacherClaims(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	require.False(t, errors.Is(err, appErrors.ErrForbidden))
}
