package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/edumark/school-results-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestResultRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO result_subjects")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result := &models.Result{
		SchoolID:  "school-1",
		StudentID: "student-1",
		Session:   "2025/2026",
		Term:      models.TermFirst,
		Status:    models.ResultStatusDraft,
		Subjects: []models.SubjectScore{
			{SubjectName: "Mathematics", CA1: 8, CA2: 9, Exam: 70, Total: 87, Grade: "A", Remark: "Excellent"},
		},
		UploadedBy: "teacher-1",
	}
	require.NoError(t, repo.Create(context.Background(), result))
	require.NotEmpty(t, result.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Result{
		SchoolID:  "school-1",
		StudentID: "student-1",
		Session:   "2025/2026",
		Term:      models.TermFirst,
	})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now().UTC()
	approver := "admin-1"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateStatus(context.Background(), UpdateResultStatusParams{
		ID:         "result-1",
		From:       models.ResultStatusSubmitted,
		To:         models.ResultStatusApproved,
		ApprovedBy: &approver,
		ApprovedAt: &now,
	})
	require.NoError(t, err)

	// Wrong source status: the guard matches nothing.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateStatus(context.Background(), UpdateResultStatusParams{
		ID:   "result-1",
		From: models.ResultStatusSubmitted,
		To:   models.ResultStatusApproved,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	now := time.Now()
	resultRows := sqlmock.NewRows([]string{
		"id", "school_id", "student_id", "session", "term", "total_score", "average_score",
		"position", "total_students", "status", "teacher_comment", "principal_comment",
		"rejection_reason", "approved_by", "approved_at", "uploaded_by", "created_at", "updated_at",
	}).AddRow("result-1", "school-1", "student-1", "2025/2026", "First", 87.0, 87.0,
		nil, nil, "approved", nil, nil, nil, "admin-1", now, "teacher-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, student_id")).
		WithArgs("result-1").
		WillReturnRows(resultRows)

	subjectRows := sqlmock.NewRows([]string{
		"id", "result_id", "subject_name", "ca1", "ca2", "exam", "total", "grade", "remark", "sort_order",
	}).AddRow("subject-1", "result-1", "Mathematics", 8.0, 9.0, 70.0, 87.0, "A", "Excellent", 0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, result_id, subject_name")).
		WithArgs("result-1").
		WillReturnRows(subjectRows)

	found, err := repo.FindByID(context.Background(), "result-1")
	require.NoError(t, err)
	require.Equal(t, models.ResultStatusApproved, found.Status)
	require.Len(t, found.Subjects, 1)
	require.Equal(t, "A", found.Subjects[0].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryDeleteApprovedGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM results")).
		WithArgs("result-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "result-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
