package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/pkg/clock"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type sessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindForCourseDateDay(ctx context.Context, courseID string, dayStart, dayEnd time.Time, day string) (*models.Session, error)
	FindLatestForCourseBetween(ctx context.Context, courseCode string, dayStart, dayEnd time.Time) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	ListAll(ctx context.Context) ([]models.Session, error)
	SweepPendingToAbsent(ctx context.Context, sessionID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, courseCode string) (*models.Course, error)
}

type studentReader interface {
	FindByIDNumber(ctx context.Context, idNumber string) (*models.Student, error)
	ListByIDNumbers(ctx context.Context, idNumbers []string) ([]models.Student, error)
}

// LifecycleService owns the session state machine: creation, the lazy
// "ended" detection, and the Pending to Absent sweep. There is no
// background scheduler; every read or write path reconciles the session it
// touches, and ForceCheckAllSessions is the explicit catch-up.
type LifecycleService struct {
	sessions  sessionStore
	courses   courseReader
	students  studentReader
	clock     clock.Clock
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewLifecycleService constructs the lifecycle service.
func NewLifecycleService(sessions sessionStore, courses courseReader, students studentReader, clk clock.Clock, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *LifecycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		sessions:  sessions,
		courses:   courses,
		students:  students,
		clock:     clk,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
	}
}

// CreateSessionRequest describes an explicit session-create payload.
type CreateSessionRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Day      string `json:"day" validate:"required"`
}

// CreateSession snapshots the course roster into a new session with every
// student Pending. A duplicate (course, date, day) create fails with a
// conflict but still hands back the existing session so the caller can
// recover without another round trip.
func (s *LifecycleService) CreateSession(ctx context.Context, req CreateSessionRequest, createdBy *string) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course id, date and day are required")
	}
	if !models.ValidDay(req.Day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", req.Day))
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	schedule := ResolveSchedule(course, req.Day)
	if schedule == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no schedule found for %s in this course", req.Day))
	}

	day := dateOnly(date)
	existing, err := s.sessions.FindForCourseDateDay(ctx, course.ID, day, day.AddDate(0, 0, 1), req.Day)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for existing session")
	}
	if existing != nil {
		return existing, appErrors.Clone(appErrors.ErrConflict, "a session already exists for this course on this date and day")
	}

	session, err := s.buildSession(ctx, course, day, req.Day, schedule, createdBy)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "failed to create session, it may already exist")
	}
	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("course_code", session.CourseCode),
		zap.Time("date", session.Date),
		zap.Int("roster_size", len(session.Students)))
	return session, nil
}

// GetSession loads a session and reconciles its ended state first.
func (s *LifecycleService) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if err := s.Reconcile(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessionsForCourse returns a course's sessions, each reconciled.
func (s *LifecycleService) ListSessionsForCourse(ctx context.Context, courseID string, from, to *time.Time) ([]models.Session, error) {
	sessions, err := s.sessions.List(ctx, models.SessionFilter{CourseID: courseID, DateFrom: from, DateTo: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	for i := range sessions {
		if err := s.Reconcile(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// ListSessionsForStudent returns sessions containing the student, reconciled.
func (s *LifecycleService) ListSessionsForStudent(ctx context.Context, studentID, courseID string, from, to *time.Time) ([]models.Session, error) {
	sessions, err := s.sessions.List(ctx, models.SessionFilter{StudentID: studentID, CourseID: courseID, DateFrom: from, DateTo: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	for i := range sessions {
		if err := s.Reconcile(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// DeleteSession removes a session. Deletion is an explicit action; the
// engine never deletes sessions on its own.
func (s *LifecycleService) DeleteSession(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

// ResolveActiveSession finds the session an attendance write should land
// on: the explicit session id when given, otherwise the latest session for
// the course dated today, otherwise a session auto-created from today's
// schedule entry. The resolved session is always reconciled before being
// returned, so a stale session is swept before any new write lands on it.
func (s *LifecycleService) ResolveActiveSession(ctx context.Context, sessionID string, course *models.Course) (*models.Session, error) {
	if sessionID != "" {
		session, err := s.sessions.FindByID(ctx, sessionID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
		}
		if session != nil {
			if err := s.Reconcile(ctx, session); err != nil {
				return nil, err
			}
			return session, nil
		}
		// Fall through to the course lookup, matching the explicit-id
		// miss behaviour clients already rely on.
		s.logger.Debug("session id not found, resolving by course", zap.String("session_id", sessionID))
	}

	if course == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active session found and no course to create one for")
	}

	today, tomorrow := s.todayBounds()
	session, err := s.sessions.FindLatestForCourseBetween(ctx, course.CourseCode, today, tomorrow)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find today's session")
	}
	if session != nil {
		if err := s.Reconcile(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	return s.autoCreateForToday(ctx, course)
}

func (s *LifecycleService) autoCreateForToday(ctx context.Context, course *models.Course) (*models.Session, error) {
	now := s.clock.Now()
	day := now.Weekday().String()
	schedule := ResolveSchedule(course, day)
	if schedule == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no schedule found for today (%s) in this course", day))
	}
	session, err := s.buildSession(ctx, course, dateOnly(now), day, schedule, nil)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "failed to create session for attendance")
	}
	s.logger.Info("session auto-created for attendance",
		zap.String("session_id", session.ID),
		zap.String("course_code", session.CourseCode),
		zap.String("day", day))
	return session, nil
}

func (s *LifecycleService) buildSession(ctx context.Context, course *models.Course, date time.Time, day string, schedule *models.ScheduleEntry, createdBy *string) (*models.Session, error) {
	roster, err := s.students.ListByIDNumbers(ctx, course.Students)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled students")
	}
	rows := make([]models.StudentAttendance, len(roster))
	for i, student := range roster {
		rows[i] = models.StudentAttendance{
			StudentID:   student.IDNumber,
			StudentName: student.FullName,
			Status:      models.StatusPending,
		}
	}
	room := schedule.Room
	if room == "" {
		room = course.Room
	}
	return &models.Session{
		CourseID:    course.ID,
		CourseCode:  course.CourseCode,
		CourseName:  course.CourseName,
		Date:        date,
		Day:         day,
		StartTime:   schedule.StartTime,
		EndTime:     schedule.EndTime,
		Room:        room,
		YearSection: course.YearSection,
		Program:     course.Program,
		CreatedBy:   createdBy,
		Students:    rows,
	}, nil
}

// IsSessionEnded reports whether the session's scheduled window has passed,
// compared in the reference time zone. A session dated before today has
// ended; one dated today has ended once the wall clock reaches the stored
// end time. An unparseable end time fails open: the session is treated as
// still active and the defect is logged rather than surfaced.
func (s *LifecycleService) IsSessionEnded(session *models.Session) bool {
	now := s.clock.Now()
	sy, sm, sd := session.Date.Date()
	ny, nm, nd := now.Date()

	sessionDay := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	currentDay := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)

	if sessionDay.Before(currentDay) {
		return true
	}
	if sessionDay.After(currentDay) {
		return false
	}

	endHour, endMinute, ok := parseWallClock(session.EndTime)
	if !ok {
		s.logger.Warn("unparseable session end time, treating session as active",
			zap.String("session_id", session.ID),
			zap.String("end_time", session.EndTime))
		return false
	}
	if now.Hour() > endHour {
		return true
	}
	return now.Hour() == endHour && now.Minute() >= endMinute
}

// SweepPendingToAbsent marks every Pending row Absent and reports how many
// rows changed. Safe to call repeatedly; an already-swept session reports 0.
func (s *LifecycleService) SweepPendingToAbsent(ctx context.Context, session *models.Session) (int, error) {
	changed, err := s.sessions.SweepPendingToAbsent(ctx, session.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep pending students")
	}
	if changed > 0 {
		for i := range session.Students {
			if session.Students[i].Status == models.StatusPending {
				session.Students[i].Status = models.StatusAbsent
			}
		}
		s.logger.Info("swept pending students to absent",
			zap.String("session_id", session.ID),
			zap.Int("count", changed))
		if s.metrics != nil {
			s.metrics.RecordSweep(changed)
		}
	}
	return changed, nil
}

// Reconcile applies the lazy ended-check: if the session has ended, pending
// students are swept before the caller sees the session.
func (s *LifecycleService) Reconcile(ctx context.Context, session *models.Session) error {
	if session == nil {
		return nil
	}
	if !s.IsSessionEnded(session) {
		return nil
	}
	_, err := s.SweepPendingToAbsent(ctx, session)
	return err
}

// EndSessionResult reports the outcome of closing a session.
type EndSessionResult struct {
	SessionID           string    `json:"session_id"`
	CourseCode          string    `json:"course_code"`
	Date                time.Time `json:"date"`
	PendingMarkedAbsent int       `json:"pending_marked_absent"`
}

// EndSession closes a session now. Without force, the session must actually
// have ended; otherwise the caller gets a precondition failure.
func (s *LifecycleService) EndSession(ctx context.Context, sessionID string, force bool) (*EndSessionResult, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if !force && !s.IsSessionEnded(session) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "session has not ended yet, use force to end it manually")
	}

	changed, err := s.SweepPendingToAbsent(ctx, session)
	if err != nil {
		return nil, err
	}
	return &EndSessionResult{
		SessionID:           session.ID,
		CourseCode:          session.CourseCode,
		Date:                session.Date,
		PendingMarkedAbsent: changed,
	}, nil
}

// ForceCheckDetail records one ended session processed by the batch sweep.
type ForceCheckDetail struct {
	SessionID           string    `json:"session_id"`
	CourseCode          string    `json:"course_code"`
	Date                time.Time `json:"date"`
	EndTime             string    `json:"end_time"`
	PendingMarkedAbsent int       `json:"pending_marked_absent"`
}

// ForceCheckFailure records a session whose sweep failed.
type ForceCheckFailure struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// ForceCheckResult summarises a batch reconciliation run.
type ForceCheckResult struct {
	TotalSessions        int                 `json:"total_sessions"`
	CheckedSessions      int                 `json:"checked_sessions"`
	EndedSessions        int                 `json:"ended_sessions"`
	StudentsMarkedAbsent int                 `json:"students_marked_absent"`
	SessionDetails       []ForceCheckDetail  `json:"session_details,omitempty"`
	Failures             []ForceCheckFailure `json:"failures,omitempty"`
}

// ForceCheckAllSessions runs the ended-check and sweep over every session.
// One session's failure is recorded and never aborts the rest of the batch.
func (s *LifecycleService) ForceCheckAllSessions(ctx context.Context) (*ForceCheckResult, error) {
	sessions, err := s.sessions.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	result := &ForceCheckResult{TotalSessions: len(sessions)}
	for i := range sessions {
		session := &sessions[i]
		result.CheckedSessions++
		if !s.IsSessionEnded(session) {
			continue
		}
		result.EndedSessions++
		changed, err := s.SweepPendingToAbsent(ctx, session)
		if err != nil {
			s.logger.Error("sweep failed during force check",
				zap.String("session_id", session.ID),
				zap.Error(err))
			result.Failures = append(result.Failures, ForceCheckFailure{SessionID: session.ID, Error: err.Error()})
			continue
		}
		result.StudentsMarkedAbsent += changed
		if changed > 0 {
			result.SessionDetails = append(result.SessionDetails, ForceCheckDetail{
				SessionID:           session.ID,
				CourseCode:          session.CourseCode,
				Date:                session.Date,
				EndTime:             session.EndTime,
				PendingMarkedAbsent: changed,
			})
		}
	}
	s.logger.Info("force check completed",
		zap.Int("total", result.TotalSessions),
		zap.Int("ended", result.EndedSessions),
		zap.Int("marked_absent", result.StudentsMarkedAbsent))
	return result, nil
}

func (s *LifecycleService) todayBounds() (time.Time, time.Time) {
	today := dateOnly(s.clock.Now())
	return today, today.AddDate(0, 0, 1)
}

// dateOnly truncates an instant to its calendar day, normalised to UTC so
// stored DATE values and reference-zone days compare component-wise.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
