package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/service"
	"github.com/campuskit/attendance-api/pkg/response"
)

type statisticsProvider interface {
	CourseStatistics(ctx context.Context, courseID string, from, to *time.Time) (*models.CourseStatistics, error)
	ExportCourseStatistics(ctx context.Context, courseID string, from, to *time.Time, format service.ExportFormat) (*service.ExportResult, error)
}

// StatisticsHandler exposes course statistics and exports.
type StatisticsHandler struct {
	service statisticsProvider
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(service statisticsProvider) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

// CourseStats godoc
// @Summary Attendance statistics for a course
// @Tags Statistics
// @Produce json
// @Param courseId path string true "Course ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /sessions/stats/course/{courseId} [get]
func (h *StatisticsHandler) CourseStats(c *gin.Context) {
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
	stats, err := h.service.CourseStatistics(c.Request.Context(), c.Param("courseId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export course statistics as CSV or PDF
// @Tags Statistics
// @Produce octet-stream
// @Param courseId path string true "Course ID"
// @Param format query string false "csv or pdf (default csv)"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /sessions/stats/course/{courseId}/export [get]
func (h *StatisticsHandler) Export(c *gin.Context) {
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
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.service.ExportCourseStatistics(c.Request.Context(), c.Param("courseId"), from, to, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
