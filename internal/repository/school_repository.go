package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edumark/school-results-api/internal/models"
)

// SchoolRepository resolves schools and their students.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID fetches a school by identifier.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, code, name, active, created_at, updated_at FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// FindByCode fetches a school by its public code.
func (r *SchoolRepository) FindByCode(ctx context.Context, code string) (*models.School, error) {
	const query = `SELECT id, code, name, active, created_at, updated_at FROM schools WHERE code = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, code); err != nil {
		return nil, err
	}
	return &school, nil
}

// FindStudent fetches a student by admission number within a school.
func (r *SchoolRepository) FindStudent(ctx context.Context, schoolID, admissionNumber string) (*models.Student, error) {
	const query = `SELECT id, school_id, admission_number, full_name, active, created_at, updated_at
        FROM students WHERE school_id = $1 AND admission_number = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, schoolID, admissionNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindStudentByID fetches a student by identifier.
func (r *SchoolRepository) FindStudentByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, school_id, admission_number, full_name, active, created_at, updated_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// CreateStudent inserts a new student. Returns ErrDuplicate when the
// admission number is already taken within the school.
func (r *SchoolRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, school_id, admission_number, full_name, active, created_at, updated_at)
        VALUES (:id, :school_id, :admission_number, :full_name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// NextAdmissionNumber atomically increments and returns the per-school
// admission sequence. The upsert keeps the counter in the database so
// multiple replicas never hand out the same number.
func (r *SchoolRepository) NextAdmissionNumber(ctx context.Context, schoolID string) (int, error) {
	const query = `INSERT INTO admission_sequences (school_id, value) VALUES ($1, 1)
        ON CONFLICT (school_id) DO UPDATE SET value = admission_sequences.value + 1
        RETURNING value`
	var value int
	if err := r.db.GetContext(ctx, &value, query, schoolID); err != nil {
		return 0, fmt.Errorf("next admission number: %w", err)
	}
	return value, nil
}
