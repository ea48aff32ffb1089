package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionRows(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "course_id", "course_code", "course_name", "date", "day", "start_time", "end_time", "room", "year_section", "program", "created_by", "created_at", "updated_at"}).
		AddRow(id, "course-1", "CS101", "Intro to Computing", now, "Monday", "9:00 AM", "10:30 AM", "101", "", "", nil, now, now)
}

func studentRows(sessionID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "session_id", "student_id", "student_name", "status", "time_in", "notes"}).
		AddRow("row-1", sessionID, "2021-001", "Ana Cruz", "Pending", nil, "").
		AddRow("row-2", sessionID, "2021-002", "Ben Reyes", "Present", nil, "")
}

func TestSessionRepositoryCreateInsertsRowsTransactionally(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_students")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_students")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	session := &models.Session{
		CourseID:   "course-1",
		CourseCode: "CS101",
		Date:       time.Now(),
		Day:        "Monday",
		Students: []models.StudentAttendance{
			{StudentID: "2021-001", StudentName: "Ana Cruz", Status: models.StatusPending},
			{StudentID: "2021-002", StudentName: "Ben Reyes", Status: models.StatusPending},
		},
	}
	require.NoError(t, repo.Create(context.Background(), session))
	require.NotEmpty(t, session.ID)
	require.Equal(t, session.ID, session.Students[0].SessionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByIDLoadsStudents(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.course_id")).
		WithArgs("sess-1").
		WillReturnRows(sessionRows("sess-1"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM session_students WHERE session_id")).
		WithArgs("sess-1").
		WillReturnRows(studentRows("sess-1"))

	session, err := repo.FindByID(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, session.Students, 2)
	require.Equal(t, models.StatusPending, session.Students[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositorySweepPendingReportsAffected(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE session_students SET status")).
		WithArgs(models.StatusAbsent, "sess-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 2))

	changed, err := repo.SweepPendingToAbsent(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 2, changed)

	// Second sweep matches nothing.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE session_students SET status")).
		WithArgs(models.StatusAbsent, "sess-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	changed, err = repo.SweepPendingToAbsent(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 0, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateStudentStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE session_students SET status")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStudentStatus(context.Background(), "sess-1", "missing", models.StatusExcused, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
