package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edumark/school-results-api/internal/models"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate row")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ResultRepository persists result records and their subject lines.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, school_id, student_id, session, term, total_score, average_score,
       position, total_students, status, teacher_comment, principal_comment, rejection_reason,
       approved_by, approved_at, uploaded_by, created_at, updated_at`

// Create inserts a new result together with its subject rows in one
// transaction. Returns ErrDuplicate when a result already exists for the
// (school, student, session, term) tuple.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	result.CreatedAt = now
	result.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO results
        (id, school_id, student_id, session, term, total_score, average_score, position, total_students,
         status, teacher_comment, principal_comment, rejection_reason, approved_by, approved_at, uploaded_by, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :session, :term, :total_score, :average_score, :position, :total_students,
         :status, :teacher_comment, :principal_comment, :rejection_reason, :approved_by, :approved_at, :uploaded_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, result); err != nil {
		tx.Rollback() //nolint:errcheck
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create result: %w", err)
	}
	if err := insertSubjects(ctx, tx, result.ID, result.Subjects); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result: %w", err)
	}
	return nil
}

// FindByID fetches a result with its subject rows.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	query := fmt.Sprintf("SELECT %s FROM results WHERE id = $1", resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	subjects, err := r.subjects(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Subjects = subjects
	return &result, nil
}

// FindApproved fetches the approved result for a student tuple, or
// sql.ErrNoRows when none exists.
func (r *ResultRepository) FindApproved(ctx context.Context, schoolID, studentID, session, term string) (*models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results
        WHERE school_id = $1 AND student_id = $2 AND session = $3 AND term = $4 AND status = $5`, resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, schoolID, studentID, session, term, models.ResultStatusApproved); err != nil {
		return nil, err
	}
	subjects, err := r.subjects(ctx, result.ID)
	if err != nil {
		return nil, err
	}
	result.Subjects = subjects
	return &result, nil
}

// List returns results matching the filter, newest first, without subjects.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Session != "" {
		args = append(args, filter.Session)
		conditions = append(conditions, fmt.Sprintf("session = $%d", len(args)))
	}
	if filter.Term != "" {
		args = append(args, filter.Term)
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM results WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		resultColumns, where, size, offset)
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM results WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}
	return results, total, nil
}

// UpdateScores replaces the subject rows and derived aggregates of a result
// that is not approved. Returns sql.ErrNoRows when the guard fails, which
// covers a concurrent approval winning first.
func (r *ResultRepository) UpdateScores(ctx context.Context, result *models.Result) error {
	result.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `UPDATE results SET total_score = :total_score, average_score = :average_score,
        teacher_comment = :teacher_comment, principal_comment = :principal_comment, updated_at = :updated_at
        WHERE id = :id AND status <> 'approved'`
	res, err := tx.NamedExecContext(ctx, query, result)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update result: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("check result update rows: %w", err)
	}
	if rows == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM result_subjects WHERE result_id = $1", result.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear result subjects: %w", err)
	}
	if err := insertSubjects(ctx, tx, result.ID, result.Subjects); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result update: %w", err)
	}
	return nil
}

// UpdateResultStatusParams groups the columns written on a status flip.
type UpdateResultStatusParams struct {
	ID              string
	From            models.ResultStatus
	To              models.ResultStatus
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string
}

// UpdateStatus flips the workflow status with a conditional update so two
// concurrent transitions can never both win. Returns sql.ErrNoRows when the
// row is no longer in the expected source status.
func (r *ResultRepository) UpdateStatus(ctx context.Context, params UpdateResultStatusParams) error {
	const query = `UPDATE results SET status = :to_status, approved_by = :approved_by, approved_at = :approved_at,
        rejection_reason = :rejection_reason, updated_at = :updated_at
        WHERE id = :id AND status = :from_status`
	res, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               params.ID,
		"from_status":      params.From,
		"to_status":        params.To,
		"approved_by":      params.ApprovedBy,
		"approved_at":      params.ApprovedAt,
		"rejection_reason": params.RejectionReason,
		"updated_at":       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update result status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check result status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a result unless it has been approved. Approved results are
// never hard-deleted.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM results WHERE id = $1 AND status <> 'approved'", id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check result delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ResultRepository) subjects(ctx context.Context, resultID string) ([]models.SubjectScore, error) {
	const query = `SELECT id, result_id, subject_name, ca1, ca2, exam, total, grade, remark, sort_order
        FROM result_subjects WHERE result_id = $1 ORDER BY sort_order`
	var subjects []models.SubjectScore
	if err := r.db.SelectContext(ctx, &subjects, query, resultID); err != nil {
		return nil, fmt.Errorf("load result subjects: %w", err)
	}
	return subjects, nil
}

func insertSubjects(ctx context.Context, tx *sqlx.Tx, resultID string, subjects []models.SubjectScore) error {
	const query = `INSERT INTO result_subjects (id, result_id, subject_name, ca1, ca2, exam, total, grade, remark, sort_order)
        VALUES (:id, :result_id, :subject_name, :ca1, :ca2, :exam, :total, :grade, :remark, :sort_order)`
	for i := range subjects {
		if subjects[i].ID == "" {
			subjects[i].ID = uuid.NewString()
		}
		subjects[i].ResultID = resultID
		subjects[i].SortOrder = i
		if _, err := tx.NamedExecContext(ctx, query, subjects[i]); err != nil {
			return fmt.Errorf("insert result subject: %w", err)
		}
	}
	return nil
}
