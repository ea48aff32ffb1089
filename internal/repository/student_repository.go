package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	query := `INSERT INTO students (id, id_number, full_name, year_section, program, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, student.ID, student.IDNumber, student.FullName, student.YearSection, student.Program, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// FindByIDNumber fetches a student by the school-issued ID number.
func (r *StudentRepository) FindByIDNumber(ctx context.Context, idNumber string) (*models.Student, error) {
	query := `SELECT id, id_number, full_name, year_section, program, created_at, updated_at
FROM students WHERE id_number = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, idNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByIDNumbers loads the students matching the given ID numbers, in
// id-number order. Used to snapshot a roster at session creation.
func (r *StudentRepository) ListByIDNumbers(ctx context.Context, idNumbers []string) ([]models.Student, error) {
	if len(idNumbers) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, id_number, full_name, year_section, program, created_at, updated_at
FROM students WHERE id_number IN (?) ORDER BY id_number ASC`, idNumbers)
	if err != nil {
		return nil, fmt.Errorf("build student lookup: %w", err)
	}
	query = r.db.Rebind(query)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students by id numbers: %w", err)
	}
	return students, nil
}
