package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/pkg/clock"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

// Monday, 10:00 in the reference zone.
var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type memSessionStore struct {
	sessions map[string]*models.Session
	sweepErr map[string]error
	deleted  []string
	seq      int
}

func newMemSessionStore(sessions ...*models.Session) *memSessionStore {
	store := &memSessionStore{sessions: map[string]*models.Session{}}
	for _, s := range sessions {
		store.sessions[s.ID] = s
	}
	return store
}

func (m *memSessionStore) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		m.seq++
		session.ID = fmt.Sprintf("sess-%d", m.seq)
	}
	for i := range session.Students {
		session.Students[i].SessionID = session.ID
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memSessionStore) FindForCourseDateDay(ctx context.Context, courseID string, dayStart, dayEnd time.Time, day string) (*models.Session, error) {
	for _, s := range m.sessions {
		if s.CourseID == courseID && s.Day == day && !s.Date.Before(dayStart) && s.Date.Before(dayEnd) {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memSessionStore) FindLatestForCourseBetween(ctx context.Context, courseCode string, dayStart, dayEnd time.Time) (*models.Session, error) {
	var latest *models.Session
	for _, s := range m.sessions {
		if s.CourseCode != courseCode || s.Date.Before(dayStart) || !s.Date.Before(dayEnd) {
			continue
		}
		if latest == nil || s.Date.After(latest.Date) {
			latest = s
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (m *memSessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	var out []models.Session
	for _, s := range m.sessions {
		if filter.CourseID != "" && s.CourseID != filter.CourseID {
			continue
		}
		if filter.StudentID != "" && s.FindStudent(filter.StudentID) == nil {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memSessionStore) ListAll(ctx context.Context) ([]models.Session, error) {
	return m.List(ctx, models.SessionFilter{})
}

func (m *memSessionStore) SweepPendingToAbsent(ctx context.Context, sessionID string) (int, error) {
	if err := m.sweepErr[sessionID]; err != nil {
		return 0, err
	}
	session, ok := m.sessions[sessionID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	changed := 0
	for i := range session.Students {
		if session.Students[i].Status == models.StatusPending {
			session.Students[i].Status = models.StatusAbsent
			changed++
		}
	}
	return changed, nil
}

func (m *memSessionStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type memCourseReader struct {
	byID   map[string]*models.Course
	byCode map[string]*models.Course
}

func (m *memCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memCourseReader) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	if c, ok := m.byCode[code]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type memStudentReader struct {
	students map[string]*models.Student
}

func (m *memStudentReader) FindByIDNumber(ctx context.Context, idNumber string) (*models.Student, error) {
	if s, ok := m.students[idNumber]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStudentReader) ListByIDNumbers(ctx context.Context, idNumbers []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range idNumbers {
		if s, ok := m.students[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func testCourse() *models.Course {
	return &models.Course{
		ID:         "course-1",
		CourseCode: "CS101",
		CourseName: "Intro to Computing",
		Schedules: []models.ScheduleEntry{
			{Day: "Monday", StartTime: "9:00 AM", EndTime: "10:30 AM", Room: "101"},
			{Day: "Wednesday", StartTime: "9:00 AM", EndTime: "10:30 AM", Room: "101"},
		},
		Students: []string{"2021-001", "2021-002", "2021-003"},
	}
}

func testStudents() *memStudentReader {
	return &memStudentReader{students: map[string]*models.Student{
		"2021-001": {IDNumber: "2021-001", FullName: "Ana Cruz"},
		"2021-002": {IDNumber: "2021-002", FullName: "Ben Reyes"},
		"2021-003": {IDNumber: "2021-003", FullName: "Carla Santos"},
	}}
}

func newTestLifecycle(store *memSessionStore, course *models.Course) *LifecycleService {
	courses := &memCourseReader{byID: map[string]*models.Course{}, byCode: map[string]*models.Course{}}
	if course != nil {
		courses.byID[course.ID] = course
		courses.byCode[course.CourseCode] = course
	}
	return NewLifecycleService(store, courses, testStudents(), clock.Fixed(testNow), nil, nil, nil)
}

func pendingSession(id string, date time.Time, day, endTime string) *models.Session {
	return &models.Session{
		ID:         id,
		CourseID:   "course-1",
		CourseCode: "CS101",
		Date:       date,
		Day:        day,
		StartTime:  "9:00 AM",
		EndTime:    endTime,
		Students: []models.StudentAttendance{
			{SessionID: id, StudentID: "2021-001", StudentName: "Ana Cruz", Status: models.StatusPresent},
			{SessionID: id, StudentID: "2021-002", StudentName: "Ben Reyes", Status: models.StatusPending},
			{SessionID: id, StudentID: "2021-003", StudentName: "Carla Santos", Status: models.StatusPending},
		},
	}
}

func TestIsSessionEnded(t *testing.T) {
	svc := newTestLifecycle(newMemSessionStore(), testCourse())
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		date    time.Time
		endTime string
		ended   bool
	}{
		{"past date", today.AddDate(0, 0, -1), "11:59 PM", true},
		{"future date", today.AddDate(0, 0, 1), "12:01 AM", false},
		{"today before end", today, "10:30 AM", false},
		{"today at end", today, "10:00 AM", true},
		{"today after end", today, "9:00 AM", true},
		{"today afternoon end", today, "1:00 PM", false},
		{"unparseable end fails open", today, "TBA", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := &models.Session{ID: "s", Date: tc.date, EndTime: tc.endTime}
			assert.Equal(t, tc.ended, svc.IsSessionEnded(session))
		})
	}
}

func TestSweepPendingToAbsentIdempotent(t *testing.T) {
	session := pendingSession("s1", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), "Sunday", "10:00 AM")
	store := newMemSessionStore(session)
	svc := newTestLifecycle(store, testCourse())

	changed, err := svc.SweepPendingToAbsent(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, models.StatusPresent, session.Students[0].Status)
	assert.Equal(t, models.StatusAbsent, session.Students[1].Status)
	assert.Equal(t, models.StatusAbsent, session.Students[2].Status)

	changed, err = svc.SweepPendingToAbsent(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestCreateSessionSnapshotsRosterPending(t *testing.T) {
	store := newMemSessionStore()
	svc := newTestLifecycle(store, testCourse())

	session, err := svc.CreateSession(context.Background(), CreateSessionRequest{
		CourseID: "course-1",
		Date:     "2025-03-10",
		Day:      "Monday",
	}, nil)
	require.NoError(t, err)
	require.Len(t, session.Students, 3)
	for _, row := range session.Students {
		assert.Equal(t, models.StatusPending, row.Status)
	}
	assert.Equal(t, "9:00 AM", session.StartTime)
	assert.Equal(t, "10:30 AM", session.EndTime)
	assert.Equal(t, "101", session.Room)
}

func TestCreateSessionDuplicateReturnsConflictWithExisting(t *testing.T) {
	store := newMemSessionStore()
	svc := newTestLifecycle(store, testCourse())

	req := CreateSessionRequest{CourseID: "course-1", Date: "2025-03-10", Day: "Monday"}
	first, err := svc.CreateSession(context.Background(), req, nil)
	require.NoError(t, err)

	dup, err := svc.CreateSession(context.Background(), req, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.NotNil(t, dup)
	assert.Equal(t, first.ID, dup.ID)
}

func TestCreateSessionNoScheduleForDay(t *testing.T) {
	svc := newTestLifecycle(newMemSessionStore(), testCourse())

	_, err := svc.CreateSession(context.Background(), CreateSessionRequest{
		CourseID: "course-1",
		Date:     "2025-03-14",
		Day:      "Friday",
	}, nil)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestResolveActiveSessionByID(t *testing.T) {
	// Ended session: explicit lookup must sweep before returning.
	session := pendingSession("s1", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), "Sunday", "10:00 AM")
	store := newMemSessionStore(session)
	svc := newTestLifecycle(store, testCourse())

	resolved, err := svc.ResolveActiveSession(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, "s1", resolved.ID)
	assert.Equal(t, models.StatusAbsent, resolved.Students[1].Status)
}

func TestResolveActiveSessionPrefersTodaysSession(t *testing.T) {
	today := pendingSession("s-today", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "Monday", "11:30 AM")
	yesterday := pendingSession("s-old", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), "Sunday", "10:00 AM")
	store := newMemSessionStore(today, yesterday)
	course := testCourse()
	svc := newTestLifecycle(store, course)

	resolved, err := svc.ResolveActiveSession(context.Background(), "", course)
	require.NoError(t, err)
	assert.Equal(t, "s-today", resolved.ID)
}

func TestResolveActiveSessionAutoCreates(t *testing.T) {
	store := newMemSessionStore()
	course := testCourse()
	svc := newTestLifecycle(store, course)

	resolved, err := svc.ResolveActiveSession(context.Background(), "", course)
	require.NoError(t, err)
	assert.Equal(t, "Monday", resolved.Day)
	assert.Equal(t, "10:30 AM", resolved.EndTime)
	require.Len(t, resolved.Students, 3)
	for _, row := range resolved.Students {
		assert.Equal(t, models.StatusPending, row.Status)
	}
	assert.Len(t, store.sessions, 1)
}

func TestResolveActiveSessionNoScheduleToday(t *testing.T) {
	course := testCourse()
	course.Schedules = []models.ScheduleEntry{{Day: "Friday", StartTime: "9:00 AM", EndTime: "10:30 AM"}}
	svc := newTestLifecycle(newMemSessionStore(), course)

	_, err := svc.ResolveActiveSession(context.Background(), "", course)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestResolveActiveSessionUnknownIDFallsBackToCourse(t *testing.T) {
	today := pendingSession("s-today", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "Monday", "11:30 AM")
	store := newMemSessionStore(today)
	course := testCourse()
	svc := newTestLifecycle(store, course)

	resolved, err := svc.ResolveActiveSession(context.Background(), "missing", course)
	require.NoError(t, err)
	assert.Equal(t, "s-today", resolved.ID)
}

func TestEndSessionRequiresEndedOrForce(t *testing.T) {
	active := pendingSession("s1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "Monday", "11:30 AM")
	store := newMemSessionStore(active)
	svc := newTestLifecycle(store, testCourse())

	_, err := svc.EndSession(context.Background(), "s1", false)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)

	result, err := svc.EndSession(context.Background(), "s1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PendingMarkedAbsent)
}

func TestForceCheckAllSessionsToleratesFailures(t *testing.T) {
	ended := pendingSession("s-ended", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), "Sunday", "10:00 AM")
	active := pendingSession("s-active", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "Monday", "11:30 AM")
	broken := pendingSession("s-broken", time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), "Saturday", "10:00 AM")
	store := newMemSessionStore(ended, active, broken)
	store.sweepErr = map[string]error{"s-broken": errors.New("db down")}
	svc := newTestLifecycle(store, testCourse())

	result, err := svc.ForceCheckAllSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalSessions)
	assert.Equal(t, 3, result.CheckedSessions)
	assert.Equal(t, 2, result.EndedSessions)
	assert.Equal(t, 2, result.StudentsMarkedAbsent)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "s-broken", result.Failures[0].SessionID)
	require.Len(t, result.SessionDetails, 1)
	assert.Equal(t, "s-ended", result.SessionDetails[0].SessionID)
}

func TestDeleteSessionNotFound(t *testing.T) {
	svc := newTestLifecycle(newMemSessionStore(), testCourse())
	err := svc.DeleteSession(context.Background(), "missing")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
