package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type studentStore interface {
	Create(ctx context.Context, student *models.Student) error
	FindByIDNumber(ctx context.Context, idNumber string) (*models.Student, error)
}

// StudentService manages student records.
type StudentService struct {
	students  studentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(students studentStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, validator: validate, logger: logger}
}

// RegisterStudentRequest is the student-registration payload.
type RegisterStudentRequest struct {
	IDNumber    string `json:"id_number" validate:"required"`
	FullName    string `json:"full_name" validate:"required"`
	YearSection string `json:"year_section"`
	Program     string `json:"program"`
}

// RegisterStudent creates a student record. The school-issued ID number is
// the natural key used everywhere else.
func (s *StudentService) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "id number and full name are required")
	}
	if existing, err := s.students.FindByIDNumber(ctx, req.IDNumber); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this id number already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	student := &models.Student{
		IDNumber:    req.IDNumber,
		FullName:    req.FullName,
		YearSection: req.YearSection,
		Program:     req.Program,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student registered", zap.String("id_number", student.IDNumber))
	return student, nil
}

// GetStudent loads a student by ID number.
func (s *StudentService) GetStudent(ctx context.Context, idNumber string) (*models.Student, error) {
	student, err := s.students.FindByIDNumber(ctx, idNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
