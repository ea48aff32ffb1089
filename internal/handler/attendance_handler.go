package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/response"
)

type attendanceRecorder interface {
	RecordAttendance(ctx context.Context, req service.RecordAttendanceRequest) (*service.RecordAttendanceResult, error)
	UpdateStudentStatus(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, notes *string) (*models.StudentAttendance, error)
	ListStudentSessionAttendance(ctx context.Context, studentID, courseID string, from, to *time.Time) ([]models.StudentSessionRecord, error)
	RecordLegacy(ctx context.Context, req service.RecordLegacyRequest) (*models.Attendance, error)
	RecordManualLegacy(ctx context.Context, req service.RecordLegacyRequest) (*models.Attendance, error)
	ListLegacy(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error)
}

// AttendanceHandler exposes check-in, status-override and listing endpoints.
type AttendanceHandler struct {
	service attendanceRecorder
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceRecorder) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Record godoc
// @Summary Record a student check-in against the active session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Check-in payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope "EXPIRED_CODE when a QR code is past its expiry"
// @Router /attendance/record [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.RecordAttendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

type updateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// UpdateStudentStatus godoc
// @Summary Override a student's status in a session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Param payload body updateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/students/{studentId} [put]
func (h *AttendanceHandler) UpdateStudentStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	row, err := h.service.UpdateStudentStatus(c.Request.Context(), c.Param("id"), c.Param("studentId"), models.AttendanceStatus(req.Status), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// ListForStudent godoc
// @Summary List a student's per-session attendance
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId query string false "Course ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /sessions/student/{studentId} [get]
func (h *AttendanceHandler) ListForStudent(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.service.ListStudentSessionAttendance(c.Request.Context(), c.Param("studentId"), c.Query("courseId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// RecordLegacy godoc
// @Summary Record a flat attendance record for today
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordLegacyRequest true "Record payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) RecordLegacy(c *gin.Context) {
	var req service.RecordLegacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	record, err := h.service.RecordLegacy(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// RecordManual godoc
// @Summary Record attendance using the course's manual code
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordLegacyRequest true "Record payload with unique_code"
// @Success 200 {object} response.Envelope
// @Router /attendance/manual [post]
func (h *AttendanceHandler) RecordManual(c *gin.Context) {
	var req service.RecordLegacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	record, err := h.service.RecordManualLegacy(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ListLegacy godoc
// @Summary List flat attendance records
// @Tags Attendance
// @Produce json
// @Param courseCode query string false "Course code"
// @Param studentId query string false "Student ID"
// @Param status query string false "Status filter"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) ListLegacy(c *gin.Context) {
	filter := models.AttendanceFilter{
		CourseCode: c.Query("courseCode"),
		StudentID:  c.Query("studentId"),
		Page:       parseQueryInt(c, "page", 1),
		PageSize:   parseQueryInt(c, "limit", 50),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status filter"))
			return
		}
		filter.Status = &status
	}
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.DateFrom = from
	filter.DateTo = to

	records, pagination, err := h.service.ListLegacy(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}
