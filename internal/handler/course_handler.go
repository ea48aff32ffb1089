package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

type courseManager interface {
	CreateCourse(ctx context.Context, req service.CreateCourseRequest) (*models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	GetCourseByCode(ctx context.Context, courseCode string) (*models.Course, error)
	JoinByEnrollmentCode(ctx context.Context, studentID, enrollmentCode string) (*models.Course, error)
	RegenerateAttendanceCode(ctx context.Context, courseID string) (string, error)
}

// CourseHandler exposes course management endpoints.
type CourseHandler struct {
	service courseManager
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(service courseManager) *CourseHandler {
	return &CourseHandler{service: service}
}

// Create godoc
// @Summary Create a course with generated enrollment and attendance codes
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Get godoc
// @Summary Get a course by id
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// GetByCode godoc
// @Summary Get a course by course code
// @Tags Courses
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /courses/code/{code} [get]
func (h *CourseHandler) GetByCode(c *gin.Context) {
	course, err := h.service.GetCourseByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

type joinCourseRequest struct {
	StudentID      string `json:"student_id"`
	EnrollmentCode string `json:"enrollment_code"`
}

// Join godoc
// @Summary Join a course roster using an enrollment code
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body joinCourseRequest true "Join payload"
// @Success 200 {object} response.Envelope
// @Router /courses/join [post]
func (h *CourseHandler) Join(c *gin.Context) {
	var req joinCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	course, err := h.service.JoinByEnrollmentCode(c.Request.Context(), req.StudentID, req.EnrollmentCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// RegenerateAttendanceCode godoc
// @Summary Regenerate a course's manual attendance code
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance-code [post]
func (h *CourseHandler) RegenerateAttendanceCode(c *gin.Context) {
	code, err := h.service.RegenerateAttendanceCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"attendance_code": code}, nil)
}
