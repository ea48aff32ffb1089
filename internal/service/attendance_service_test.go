package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/pkg/clock"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type memRowWriter struct {
	store *memSessionStore
}

func (m *memRowWriter) FindByID(ctx context.Context, id string) (*models.Session, error) {
	return m.store.FindByID(ctx, id)
}

func (m *memRowWriter) UpsertStudentRow(ctx context.Context, row *models.StudentAttendance) error {
	session, ok := m.store.sessions[row.SessionID]
	if !ok {
		return sql.ErrNoRows
	}
	for i := range session.Students {
		if session.Students[i].StudentID == row.StudentID {
			session.Students[i] = *row
			return nil
		}
	}
	session.Students = append(session.Students, *row)
	return nil
}

func (m *memRowWriter) UpdateStudentStatus(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, notes *string) (*models.StudentAttendance, error) {
	session, ok := m.store.sessions[sessionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	row := session.FindStudent(studentID)
	if row == nil {
		return nil, sql.ErrNoRows
	}
	row.Status = status
	if notes != nil {
		row.Notes = *notes
	}
	updated := *row
	return &updated, nil
}

type memAttendanceStore struct {
	records map[string]*models.Attendance
	seq     int
}

func (m *memAttendanceStore) key(r *models.Attendance) string {
	return fmt.Sprintf("%s|%s|%s", r.CourseCode, r.StudentID, r.Date.Format("2006-01-02"))
}

func (m *memAttendanceStore) UpsertForDay(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	if m.records == nil {
		m.records = map[string]*models.Attendance{}
	}
	key := m.key(record)
	if existing, ok := m.records[key]; ok {
		existing.Status = record.Status
		copied := *existing
		return &copied, nil
	}
	m.seq++
	record.ID = fmt.Sprintf("rec-%d", m.seq)
	stored := *record
	m.records[key] = &stored
	copied := stored
	return &copied, nil
}

func (m *memAttendanceStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	var out []models.Attendance
	for _, r := range m.records {
		if filter.CourseCode != "" && r.CourseCode != filter.CourseCode {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

type recordingInvalidator struct {
	invalidated []string
}

func (r *recordingInvalidator) InvalidateCourseStats(ctx context.Context, courseCode string) {
	r.invalidated = append(r.invalidated, courseCode)
}

type attendanceFixture struct {
	svc     *AttendanceService
	store   *memSessionStore
	flat    *memAttendanceStore
	cache   *recordingInvalidator
	course  *models.Course
	session *models.Session
}

func newAttendanceFixture(t *testing.T, session *models.Session) *attendanceFixture {
	t.Helper()
	course := testCourse()
	store := newMemSessionStore()
	if session != nil {
		store.sessions[session.ID] = session
	}
	courses := &memCourseReader{
		byID:   map[string]*models.Course{course.ID: course},
		byCode: map[string]*models.Course{course.CourseCode: course},
	}
	students := testStudents()
	lifecycle := NewLifecycleService(store, courses, students, clock.Fixed(testNow), nil, nil, nil)
	flat := &memAttendanceStore{}
	cache := &recordingInvalidator{}
	svc := NewAttendanceService(lifecycle, &memRowWriter{store: store}, courses, students, flat, cache, clock.Fixed(testNow), nil, nil, nil)
	return &attendanceFixture{svc: svc, store: store, flat: flat, cache: cache, course: course, session: session}
}

func activeTodaySession() *models.Session {
	return pendingSession("s-today", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "Monday", "11:30 AM")
}

func TestRecordAttendanceDefaultsToPresent(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())

	result, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID: "2021-002",
		SessionID: "s-today",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, result.Student.Status)
	require.NotNil(t, result.Student.TimeIn)
	assert.Equal(t, testNow, *result.Student.TimeIn)
	assert.Equal(t, "s-today", result.Session.ID)

	stored := fx.store.sessions["s-today"].FindStudent("2021-002")
	assert.Equal(t, models.StatusPresent, stored.Status)
}

func TestRecordAttendanceExpiredQRCodeRejected(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())
	expired := testNow.Add(-5 * time.Minute)

	_, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID: "2021-002",
		SessionID: "s-today",
		ExpiresAt: &expired,
	})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrExpiredCode.Code, appErr.Code)

	// Nothing written.
	stored := fx.store.sessions["s-today"].FindStudent("2021-002")
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestRecordAttendanceManualCodeExpiredMarksLate(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())
	expired := testNow.Add(-5 * time.Minute)

	result, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID:    "2021-002",
		SessionID:    "s-today",
		ExpiresAt:    &expired,
		IsManualCode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusLate, result.Student.Status)
}

func TestRecordAttendanceManualCodeNoExpiryMarksLate(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())

	result, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID:    "2021-002",
		SessionID:    "s-today",
		IsManualCode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusLate, result.Student.Status)
}

func TestRecordAttendanceManualCodeStillValidIsPresent(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())
	valid := testNow.Add(5 * time.Minute)

	result, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID:    "2021-002",
		SessionID:    "s-today",
		ExpiresAt:    &valid,
		IsManualCode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, result.Student.Status)
}

func TestRecordAttendanceExplicitStatusOverrides(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())
	expired := testNow.Add(-5 * time.Minute)

	result, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID:    "2021-002",
		SessionID:    "s-today",
		ExpiresAt:    &expired,
		IsManualCode: true,
		Status:       "Excused",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusExcused, result.Student.Status)
}

func TestRecordAttendanceRejectsUnenrolledStudent(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())
	fx.course.Students = []string{"2021-001"}

	_, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID:  "2021-002",
		CourseCode: "CS101",
	})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestRecordAttendanceAppendsLateEnrollee(t *testing.T) {
	session := activeTodaySession()
	session.Students = session.Students[:2]
	fx := newAttendanceFixture(t, session)

	result, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID: "2021-003",
		SessionID: "s-today",
	})
	require.NoError(t, err)
	assert.Equal(t, "Carla Santos", result.Student.StudentName)
	assert.Len(t, fx.store.sessions["s-today"].Students, 3)
}

func TestRecordAttendanceAutoCreatesSessionForCourse(t *testing.T) {
	fx := newAttendanceFixture(t, nil)

	result, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID:  "2021-001",
		CourseCode: "CS101",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, result.Student.Status)
	assert.Len(t, fx.store.sessions, 1)

	session := fx.store.sessions[result.Session.ID]
	assert.Equal(t, models.StatusPending, session.FindStudent("2021-002").Status)
	assert.Equal(t, models.StatusPending, session.FindStudent("2021-003").Status)
}

func TestRecordAttendanceInvalidatesStatsCache(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())

	_, err := fx.svc.RecordAttendance(context.Background(), RecordAttendanceRequest{
		StudentID: "2021-001",
		SessionID: "s-today",
	})
	require.NoError(t, err)
	assert.Contains(t, fx.cache.invalidated, "CS101")
}

func TestUpdateStudentStatusMissingRow(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())

	_, err := fx.svc.UpdateStudentStatus(context.Background(), "s-today", "9999-999", models.StatusExcused, nil)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUpdateStudentStatusOverride(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())
	notes := "medical certificate"

	row, err := fx.svc.UpdateStudentStatus(context.Background(), "s-today", "2021-002", models.StatusExcused, &notes)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExcused, row.Status)
	assert.Equal(t, notes, row.Notes)
	assert.Contains(t, fx.cache.invalidated, "CS101")
}

func TestUpdateStudentStatusRejectsInvalidStatus(t *testing.T) {
	fx := newAttendanceFixture(t, activeTodaySession())

	_, err := fx.svc.UpdateStudentStatus(context.Background(), "s-today", "2021-002", models.AttendanceStatus("Tardy"), nil)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestListStudentSessionAttendanceReportsUnknown(t *testing.T) {
	withRow := activeTodaySession()
	withRow.FindStudent("2021-002").Status = models.StatusPresent
	withoutRow := pendingSession("s-prev", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "Monday", "11:30 AM")
	withoutRow.Students = []models.StudentAttendance{
		{StudentID: "2021-001", StudentName: "Ana Cruz", Status: models.StatusPresent},
	}
	fx := newAttendanceFixture(t, withRow)
	fx.store.sessions[withoutRow.ID] = withoutRow

	// Course-scoped: both sessions appear, the one without a row as Unknown.
	records, err := fx.svc.ListStudentSessionAttendance(context.Background(), "2021-002", "course-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	statuses := map[string]string{}
	for _, r := range records {
		statuses[r.SessionID] = r.Status
	}
	assert.Equal(t, "Present", statuses["s-today"])
	assert.Equal(t, "Unknown", statuses["s-prev"])

	// Unscoped: only sessions containing the student.
	records, err = fx.svc.ListStudentSessionAttendance(context.Background(), "2021-002", "", nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Present", records[0].Status)
}

func TestRecordManualLegacyVerifiesCode(t *testing.T) {
	fx := newAttendanceFixture(t, nil)
	fx.course.AttendanceCode = "123456"

	_, err := fx.svc.RecordManualLegacy(context.Background(), RecordLegacyRequest{
		CourseCode: "CS101",
		StudentID:  "2021-001",
		UniqueCode: "000000",
	})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	record, err := fx.svc.RecordManualLegacy(context.Background(), RecordLegacyRequest{
		CourseCode: "CS101",
		StudentID:  "2021-001",
		UniqueCode: "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, record.Status)
	assert.Equal(t, dateOnly(testNow), record.Date)
}

func TestRecordLegacyUpsertsSameDay(t *testing.T) {
	fx := newAttendanceFixture(t, nil)

	first, err := fx.svc.RecordLegacy(context.Background(), RecordLegacyRequest{
		CourseCode: "CS101",
		StudentID:  "2021-001",
	})
	require.NoError(t, err)

	second, err := fx.svc.RecordLegacy(context.Background(), RecordLegacyRequest{
		CourseCode: "CS101",
		StudentID:  "2021-001",
		Status:     "Late",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.StatusLate, second.Status)
	assert.Len(t, fx.flat.records, 1)
}
