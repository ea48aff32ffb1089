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

type lifecycleEngine interface {
	ResolveActiveSession(ctx context.Context, sessionID string, course *models.Course) (*models.Session, error)
	ListSessionsForStudent(ctx context.Context, studentID, courseID string, from, to *time.Time) ([]models.Session, error)
	ListSessionsForCourse(ctx context.Context, courseID string, from, to *time.Time) ([]models.Session, error)
}

type sessionRowWriter interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	UpsertStudentRow(ctx context.Context, row *models.StudentAttendance) error
	UpdateStudentStatus(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, notes *string) (*models.StudentAttendance, error)
}

type attendanceStore interface {
	UpsertForDay(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
}

type statsInvalidator interface {
	InvalidateCourseStats(ctx context.Context, courseCode string)
}

// AttendanceService applies the status policy to check-ins and owns the
// per-student status writes, both session-scoped and the legacy flat path.
type AttendanceService struct {
	lifecycle  lifecycleEngine
	rows       sessionRowWriter
	courses    courseReader
	students   studentReader
	attendance attendanceStore
	cache      statsInvalidator
	clock      clock.Clock
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(lifecycle lifecycleEngine, rows sessionRowWriter, courses courseReader, students studentReader, attendance attendanceStore, cache statsInvalidator, clk clock.Clock, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		lifecycle:  lifecycle,
		rows:       rows,
		courses:    courses,
		students:   students,
		attendance: attendance,
		cache:      cache,
		clock:      clk,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
	}
}

// RecordAttendanceRequest is a check-in payload. Either SessionID or
// CourseCode must be present so a session can be resolved.
type RecordAttendanceRequest struct {
	StudentID    string     `json:"student_id" validate:"required"`
	SessionID    string     `json:"session_id"`
	CourseCode   string     `json:"course_code"`
	Status       string     `json:"status"`
	UniqueCode   string     `json:"unique_code"`
	ExpiresAt    *time.Time `json:"expires_at"`
	IsManualCode bool       `json:"is_manual_code"`
}

// RecordAttendanceResult is the denormalized response to a check-in.
type RecordAttendanceResult struct {
	Student models.StudentAttendance `json:"student"`
	Session models.SessionSummary    `json:"session"`
}

// RecordAttendance resolves the active session for the request and writes
// the student's status row. The status policy: Present by default; a QR
// scan with an expired code is rejected outright; a manual code with an
// expired or missing expiry records Late; an explicit status always wins.
func (s *AttendanceService) RecordAttendance(ctx context.Context, req RecordAttendanceRequest) (*RecordAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student id is required")
	}
	if req.SessionID == "" && req.CourseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id or course code is required")
	}

	status, err := s.resolveStatus(req)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByIDNumber(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	var course *models.Course
	if req.CourseCode != "" {
		course, err = s.courses.FindByCode(ctx, req.CourseCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if !course.IsStudentEnrolled(student.IDNumber) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in this course")
		}
	}

	session, err := s.lifecycle.ResolveActiveSession(ctx, req.SessionID, course)
	if err != nil {
		return nil, err
	}

	timeIn := s.clock.Now()
	row := session.FindStudent(student.IDNumber)
	if row == nil {
		// Late enrollee not on the creation-time roster gets a fresh row.
		session.Students = append(session.Students, models.StudentAttendance{
			SessionID:   session.ID,
			StudentID:   student.IDNumber,
			StudentName: student.FullName,
		})
		row = &session.Students[len(session.Students)-1]
	}
	row.Status = status
	row.TimeIn = &timeIn
	row.Notes = ""
	if err := s.rows.UpsertStudentRow(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.invalidateStats(ctx, session.CourseCode)
	if s.metrics != nil {
		s.metrics.RecordAttendance(string(status))
	}
	s.logger.Info("attendance recorded",
		zap.String("session_id", session.ID),
		zap.String("student_id", student.IDNumber),
		zap.String("status", string(status)),
		zap.Bool("manual", req.IsManualCode))

	return &RecordAttendanceResult{Student: *row, Session: session.Summary()}, nil
}

func (s *AttendanceService) resolveStatus(req RecordAttendanceRequest) (models.AttendanceStatus, error) {
	status := models.StatusPresent
	expired := req.ExpiresAt != nil && s.clock.Now().After(*req.ExpiresAt)
	if req.IsManualCode {
		if expired || req.ExpiresAt == nil {
			status = models.StatusLate
		}
	} else if expired {
		return "", appErrors.Clone(appErrors.ErrExpiredCode, "")
	}
	if req.Status != "" {
		explicit := models.AttendanceStatus(req.Status)
		if !explicit.Valid() {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", req.Status))
		}
		status = explicit
	}
	return status, nil
}

// UpdateStudentStatus is the instructor override: any of the five statuses,
// applied to an existing row only.
func (s *AttendanceService) UpdateStudentStatus(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, notes *string) (*models.StudentAttendance, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", status))
	}
	session, err := s.rows.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	row, err := s.rows.UpdateStudentStatus(ctx, sessionID, studentID, status, notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}

	s.invalidateStats(ctx, session.CourseCode)
	if s.metrics != nil {
		s.metrics.RecordAttendance(string(status))
	}
	s.logger.Info("student status overridden",
		zap.String("session_id", sessionID),
		zap.String("student_id", studentID),
		zap.String("status", string(status)))
	return row, nil
}

// ListStudentSessionAttendance extracts the student's row from each of
// their sessions. A session the student is missing from reports status
// "Unknown" rather than being skipped.
func (s *AttendanceService) ListStudentSessionAttendance(ctx context.Context, studentID, courseID string, from, to *time.Time) ([]models.StudentSessionRecord, error) {
	if _, err := s.students.FindByIDNumber(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	// A course-scoped listing walks every session of the course so a
	// session the student has no row in still shows up, as Unknown. The
	// unscoped listing can only return sessions that contain the student.
	var sessions []models.Session
	var err error
	if courseID != "" {
		sessions, err = s.lifecycle.ListSessionsForCourse(ctx, courseID, from, to)
	} else {
		sessions, err = s.lifecycle.ListSessionsForStudent(ctx, studentID, "", from, to)
	}
	if err != nil {
		return nil, err
	}
	records := make([]models.StudentSessionRecord, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		record := models.StudentSessionRecord{
			SessionID:  session.ID,
			CourseID:   session.CourseID,
			CourseCode: session.CourseCode,
			CourseName: session.CourseName,
			Date:       session.Date,
			Day:        session.Day,
			StartTime:  session.StartTime,
			EndTime:    session.EndTime,
			Room:       session.Room,
			Status:     "Unknown",
		}
		if row := session.FindStudent(studentID); row != nil {
			record.Status = string(row.Status)
			record.TimeIn = row.TimeIn
			record.Notes = row.Notes
		}
		records = append(records, record)
	}
	return records, nil
}

// RecordLegacyRequest writes to the flat attendance_records path.
type RecordLegacyRequest struct {
	CourseCode  string `json:"course_code" validate:"required"`
	StudentID   string `json:"student_id" validate:"required"`
	Status      string `json:"status"`
	YearSection string `json:"year_section"`
	UniqueCode  string `json:"unique_code"`
}

// RecordLegacy upserts today's flat attendance record for the student.
func (s *AttendanceService) RecordLegacy(ctx context.Context, req RecordLegacyRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course code and student id are required")
	}
	status := models.StatusPresent
	if req.Status != "" {
		status = models.AttendanceStatus(req.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", req.Status))
		}
	}
	record, err := s.attendance.UpsertForDay(ctx, &models.Attendance{
		CourseCode:  req.CourseCode,
		StudentID:   req.StudentID,
		Status:      status,
		YearSection: req.YearSection,
		Date:        dateOnly(s.clock.Now()),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.invalidateStats(ctx, req.CourseCode)
	return record, nil
}

// RecordManualLegacy verifies the course's manual attendance code before
// writing the flat record.
func (s *AttendanceService) RecordManualLegacy(ctx context.Context, req RecordLegacyRequest) (*models.Attendance, error) {
	if req.UniqueCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance code is required")
	}
	course, err := s.courses.FindByCode(ctx, req.CourseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.AttendanceCode != req.UniqueCode {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance code")
	}
	return s.RecordLegacy(ctx, req)
}

// ListLegacy returns flat attendance records with pagination.
func (s *AttendanceService) ListLegacy(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error) {
	records, total, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *AttendanceService) invalidateStats(ctx context.Context, courseCode string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateCourseStats(ctx, courseCode)
}
