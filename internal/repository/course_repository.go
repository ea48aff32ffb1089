package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-api/internal/models"
)

// CourseRepository manages persistence for courses, their weekly schedule
// entries and roster membership.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `c.id, c.course_code, c.course_name, c.instructor_id, c.instructor_name,
        c.enrollment_code, c.attendance_code, c.room, c.program, c.year_section, c.created_at, c.updated_at`

// Create inserts a course with its schedule entries.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.CreatedAt = now
	course.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create course: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	query := `INSERT INTO courses (id, course_code, course_name, instructor_id, instructor_name, enrollment_code, attendance_code, room, program, year_section, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := tx.ExecContext(ctx, query,
		course.ID, course.CourseCode, course.CourseName, course.InstructorID, course.InstructorName,
		course.EnrollmentCode, course.AttendanceCode, course.Room, course.Program, course.YearSection,
		course.CreatedAt, course.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}

	scheduleQuery := `INSERT INTO course_schedules (id, course_id, day_of_week, start_time, end_time, room, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range course.Schedules {
		entry := &course.Schedules[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.CourseID = course.ID
		entry.Position = i
		if _, err := tx.ExecContext(ctx, scheduleQuery, entry.ID, entry.CourseID, entry.Day, entry.StartTime, entry.EndTime, entry.Room, entry.Position); err != nil {
			return fmt.Errorf("insert course schedule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create course: %w", err)
	}
	committed = true
	return nil
}

// FindByID fetches a course with schedules and roster.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c WHERE c.id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByCode fetches a course by its unique course code.
func (r *CourseRepository) FindByCode(ctx context.Context, courseCode string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c WHERE c.course_code = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, courseCode); err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByEnrollmentCode resolves the course a join code belongs to.
func (r *CourseRepository) FindByEnrollmentCode(ctx context.Context, code string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c WHERE c.enrollment_code = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByEnrollmentCode supports collision retries during code generation.
func (r *CourseRepository) ExistsByEnrollmentCode(ctx context.Context, code string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM courses WHERE enrollment_code = $1 LIMIT 1`, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment code: %w", err)
	}
	return true, nil
}

// ExistsByCourseCode reports whether a course code is taken.
func (r *CourseRepository) ExistsByCourseCode(ctx context.Context, courseCode string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM courses WHERE course_code = $1 LIMIT 1`, courseCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// AddStudent adds a student to the roster; duplicates are ignored.
func (r *CourseRepository) AddStudent(ctx context.Context, courseID, studentID string) error {
	query := `INSERT INTO course_students (course_id, student_id)
VALUES ($1, $2) ON CONFLICT (course_id, student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, courseID, studentID); err != nil {
		return fmt.Errorf("add student to roster: %w", err)
	}
	return nil
}

// UpdateAttendanceCode rotates the manual-entry attendance code.
func (r *CourseRepository) UpdateAttendanceCode(ctx context.Context, courseID, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE courses SET attendance_code = $1, updated_at = $2 WHERE id = $3`,
		code, time.Now().UTC(), courseID)
	if err != nil {
		return fmt.Errorf("update attendance code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attendance code rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *CourseRepository) loadRelations(ctx context.Context, course *models.Course) error {
	scheduleQuery := `SELECT id, course_id, day_of_week, start_time, end_time, room, position
FROM course_schedules WHERE course_id = $1 ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &course.Schedules, scheduleQuery, course.ID); err != nil {
		return fmt.Errorf("load course schedules: %w", err)
	}
	rosterQuery := `SELECT student_id FROM course_students WHERE course_id = $1 ORDER BY student_id ASC`
	if err := r.db.SelectContext(ctx, &course.Students, rosterQuery, course.ID); err != nil {
		return fmt.Errorf("load course roster: %w", err)
	}
	return nil
}
