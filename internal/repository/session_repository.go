package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-api/internal/models"
)

// SessionRepository persists class sessions and their per-student rows.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `s.id, s.course_id, s.course_code, s.course_name, s.date, s.day, s.start_time, s.end_time,
        s.room, s.year_section, s.program, s.created_by, s.created_at, s.updated_at`

// Create inserts a session together with its student rows in one transaction.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = now
	session.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	query := `INSERT INTO sessions (id, course_id, course_code, course_name, date, day, start_time, end_time, room, year_section, program, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := tx.ExecContext(ctx, query,
		session.ID, session.CourseID, session.CourseCode, session.CourseName,
		session.Date, session.Day, session.StartTime, session.EndTime,
		session.Room, session.YearSection, session.Program, session.CreatedBy,
		session.CreatedAt, session.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	rowQuery := `INSERT INTO session_students (id, session_id, student_id, student_name, status, time_in, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range session.Students {
		row := &session.Students[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.SessionID = session.ID
		if _, err := tx.ExecContext(ctx, rowQuery, row.ID, row.SessionID, row.StudentID, row.StudentName, row.Status, row.TimeIn, row.Notes); err != nil {
			return fmt.Errorf("insert session student %s: %w", row.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}
	committed = true
	return nil
}

// FindByID loads a session with its student rows.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions s WHERE s.id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	if err := r.loadStudents(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindForCourseDateDay returns the session matching the duplicate-create
// guard key, or sql.ErrNoRows.
func (r *SessionRepository) FindForCourseDateDay(ctx context.Context, courseID string, dayStart, dayEnd time.Time, day string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions s
WHERE s.course_id = $1 AND s.date >= $2 AND s.date < $3 AND s.day = $4
ORDER BY s.date DESC LIMIT 1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, courseID, dayStart, dayEnd, day); err != nil {
		return nil, err
	}
	if err := r.loadStudents(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindLatestForCourseBetween returns the most recent session for a course
// code within [dayStart, dayEnd), or sql.ErrNoRows.
func (r *SessionRepository) FindLatestForCourseBetween(ctx context.Context, courseCode string, dayStart, dayEnd time.Time) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions s
WHERE s.course_code = $1 AND s.date >= $2 AND s.date < $3
ORDER BY s.date DESC LIMIT 1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, courseCode, dayStart, dayEnd); err != nil {
		return nil, err
	}
	if err := r.loadStudents(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions matching the filter, newest first, students loaded.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM session_students ss WHERE ss.session_id = s.id AND ss.student_id = $%d)", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("s.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("s.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	query := fmt.Sprintf("SELECT %s FROM sessions s WHERE %s ORDER BY s.date DESC", sessionColumns, strings.Join(where, " AND "))
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for i := range sessions {
		if err := r.loadStudents(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// ListAll returns every session, newest first, students loaded. Used by the
// catch-up reconciliation sweep.
func (r *SessionRepository) ListAll(ctx context.Context) ([]models.Session, error) {
	return r.List(ctx, models.SessionFilter{})
}

// UpsertStudentRow updates a student's row in place or appends a new one.
// Targeted single-row writes keep concurrent check-ins for different
// students from clobbering each other.
func (r *SessionRepository) UpsertStudentRow(ctx context.Context, row *models.StudentAttendance) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	query := `INSERT INTO session_students (id, session_id, student_id, student_name, status, time_in, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, student_id)
DO UPDATE SET status = EXCLUDED.status, time_in = EXCLUDED.time_in, notes = EXCLUDED.notes`
	if _, err := r.db.ExecContext(ctx, query, row.ID, row.SessionID, row.StudentID, row.StudentName, row.Status, row.TimeIn, row.Notes); err != nil {
		return fmt.Errorf("upsert session student: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE sessions SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), row.SessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// UpdateStudentStatus sets status and notes on an existing row. Returns
// sql.ErrNoRows when the student has no row in the session.
func (r *SessionRepository) UpdateStudentStatus(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, notes *string) (*models.StudentAttendance, error) {
	query := `UPDATE session_students SET status = $1, notes = COALESCE($2, notes)
WHERE session_id = $3 AND student_id = $4
RETURNING id, session_id, student_id, student_name, status, time_in, notes`
	var row models.StudentAttendance
	if err := r.db.GetContext(ctx, &row, query, status, notes, sessionID, studentID); err != nil {
		return nil, err
	}
	return &row, nil
}

// SweepPendingToAbsent flips every Pending row in the session to Absent.
// A single conditional UPDATE makes the sweep idempotent: a second run
// matches no rows and reports zero.
func (r *SessionRepository) SweepPendingToAbsent(ctx context.Context, sessionID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE session_students SET status = $1 WHERE session_id = $2 AND status = $3`,
		models.StatusAbsent, sessionID, models.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("sweep pending to absent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep rows affected: %w", err)
	}
	return int(affected), nil
}

// Delete removes a session and its rows.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SessionRepository) loadStudents(ctx context.Context, session *models.Session) error {
	query := `SELECT id, session_id, student_id, student_name, status, time_in, notes
FROM session_students WHERE session_id = $1 ORDER BY student_name ASC`
	if err := r.db.SelectContext(ctx, &session.Students, query, session.ID); err != nil {
		return fmt.Errorf("load session students: %w", err)
	}
	return nil
}
