package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type courseStore interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, courseCode string) (*models.Course, error)
	FindByEnrollmentCode(ctx context.Context, code string) (*models.Course, error)
	ExistsByCourseCode(ctx context.Context, courseCode string) (bool, error)
	ExistsByEnrollmentCode(ctx context.Context, code string) (bool, error)
	AddStudent(ctx context.Context, courseID, studentID string) error
	UpdateAttendanceCode(ctx context.Context, courseID, code string) error
}

// CourseService manages courses, their schedules and roster membership.
type CourseService struct {
	courses   courseStore
	students  studentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(courses courseStore, students studentReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, students: students, validator: validate, logger: logger}
}

// ScheduleInput is one weekly meeting slot in a course-create payload.
type ScheduleInput struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Room      string `json:"room"`
}

// CreateCourseRequest is the course-create payload.
type CreateCourseRequest struct {
	CourseCode     string          `json:"course_code" validate:"required"`
	CourseName     string          `json:"course_name" validate:"required"`
	InstructorID   string          `json:"instructor_id" validate:"required"`
	InstructorName string          `json:"instructor_name"`
	Room           string          `json:"room"`
	Program        string          `json:"program"`
	YearSection    string          `json:"year_section"`
	Schedules      []ScheduleInput `json:"schedules" validate:"required,min=1,dive"`
}

// CreateCourse persists a course with generated enrollment and attendance
// codes. The enrollment code is retried on the rare collision.
func (s *CourseService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course code, name, instructor and at least one schedule are required")
	}
	for _, entry := range req.Schedules {
		if !models.ValidDay(entry.Day) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", entry.Day))
		}
		if _, _, ok := parseWallClock(entry.StartTime); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start time %q, expected H:MM AM/PM", entry.StartTime))
		}
		if _, _, ok := parseWallClock(entry.EndTime); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end time %q, expected H:MM AM/PM", entry.EndTime))
		}
	}

	exists, err := s.courses.ExistsByCourseCode(ctx, req.CourseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this code already exists")
	}

	enrollmentCode, err := s.uniqueEnrollmentCode(ctx)
	if err != nil {
		return nil, err
	}
	attendanceCode, err := generateAttendanceCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate attendance code")
	}

	course := &models.Course{
		CourseCode:     req.CourseCode,
		CourseName:     req.CourseName,
		InstructorID:   req.InstructorID,
		InstructorName: req.InstructorName,
		EnrollmentCode: enrollmentCode,
		AttendanceCode: attendanceCode,
		Room:           req.Room,
		Program:        req.Program,
		YearSection:    req.YearSection,
	}
	for i, entry := range req.Schedules {
		course.Schedules = append(course.Schedules, models.ScheduleEntry{
			Day:       entry.Day,
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
			Room:      entry.Room,
			Position:  i,
		})
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("course_code", course.CourseCode))
	return course, nil
}

// GetCourse loads a course by id.
func (s *CourseService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// GetCourseByCode loads a course by its course code.
func (s *CourseService) GetCourseByCode(ctx context.Context, courseCode string) (*models.Course, error) {
	course, err := s.courses.FindByCode(ctx, courseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// JoinByEnrollmentCode adds a student to the roster of the course matching
// the enrollment code. Joining twice is a no-op.
func (s *CourseService) JoinByEnrollmentCode(ctx context.Context, studentID, enrollmentCode string) (*models.Course, error) {
	if studentID == "" || enrollmentCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and enrollment code are required")
	}
	student, err := s.students.FindByIDNumber(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByEnrollmentCode(ctx, enrollmentCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no course matches this enrollment code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.courses.AddStudent(ctx, course.ID, student.IDNumber); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	if !course.IsStudentEnrolled(student.IDNumber) {
		course.Students = append(course.Students, student.IDNumber)
	}
	s.logger.Info("student joined course",
		zap.String("course_code", course.CourseCode),
		zap.String("student_id", student.IDNumber))
	return course, nil
}

// RegenerateAttendanceCode replaces the course's manual attendance code.
func (s *CourseService) RegenerateAttendanceCode(ctx context.Context, courseID string) (string, error) {
	code, err := generateAttendanceCode()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate attendance code")
	}
	if err := s.courses.UpdateAttendanceCode(ctx, courseID, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance code")
	}
	s.logger.Info("attendance code regenerated", zap.String("course_id", courseID))
	return code, nil
}

const enrollmentCodeAttempts = 5

func (s *CourseService) uniqueEnrollmentCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < enrollmentCodeAttempts; attempt++ {
		code, err := generateEnrollmentCode()
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate enrollment code")
		}
		exists, err := s.courses.ExistsByEnrollmentCode(ctx, code)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "could not generate a unique enrollment code")
}

func generateEnrollmentCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func generateAttendanceCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
