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

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRecordRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "id_number", "full_name", "year_section", "program", "created_at", "updated_at"}).
		AddRow("stu-1", "2021-001", "Ana Cruz", "BSCS 2-1", "BSCS", now, now)
}

func TestStudentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{IDNumber: "2021-001", FullName: "Ana Cruz"}
	require.NoError(t, repo.Create(context.Background(), student))
	require.NotEmpty(t, student.ID)
	require.False(t, student.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNumber(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id_number")).
		WithArgs("2021-001").
		WillReturnRows(studentRecordRows())

	student, err := repo.FindByIDNumber(context.Background(), "2021-001")
	require.NoError(t, err)
	require.Equal(t, "Ana Cruz", student.FullName)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id_number")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByIDNumber(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListByIDNumbers(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	rows := studentRecordRows().
		AddRow("stu-2", "2021-002", "Ben Reyes", "BSCS 2-1", "BSCS", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id_number IN")).
		WithArgs("2021-001", "2021-002").
		WillReturnRows(rows)

	students, err := repo.ListByIDNumbers(context.Background(), []string{"2021-001", "2021-002"})
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "Ben Reyes", students[1].FullName)
	require.NoError(t, mock.ExpectationsWereMet())

	// An empty lookup never touches the database.
	students, err = repo.ListByIDNumbers(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, students)
}
