package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/service"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
)

type statisticsProviderMock struct {
	exportResult *service.ExportResult
	exportErr    error
}

func (m *statisticsProviderMock) CourseStatistics(ctx context.Context, courseID string, from, to *time.Time) (*models.CourseStatistics, error) {
	return &models.CourseStatistics{}, nil
}

func (m *statisticsProviderMock) ExportCourseStatistics(ctx context.Context, courseID string, from, to *time.Time, format service.ExportFormat) (*service.ExportResult, error) {
	return m.exportResult, m.exportErr
}

func TestStatisticsHandlerExportSetsAttachmentHeaders(t *testing.T) {
	handler := NewStatisticsHandler(&statisticsProviderMock{
		exportResult: &service.ExportResult{
			Content:     []byte("Student ID,Student Name\n"),
			ContentType: "text/csv",
			Filename:    "attendance-CS101.csv",
		},
	})
	c, w := newSessionTestContext(t, http.MethodGet, "/sessions/stats/course/course-1/export", "")

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="attendance-CS101.csv"`, w.Header().Get("Content-Disposition"))
}

func TestStatisticsHandlerExportUnsupportedFormat(t *testing.T) {
	handler := NewStatisticsHandler(&statisticsProviderMock{
		exportErr: appErrors.Clone(appErrors.ErrValidation, "unsupported export format"),
	})
	c, w := newSessionTestContext(t, http.MethodGet, "/sessions/stats/course/course-1/export?format=xml", "")

	handler.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatisticsHandlerCourseStatsBadDate(t *testing.T) {
	handler := NewStatisticsHandler(&statisticsProviderMock{})
	c, w := newSessionTestContext(t, http.MethodGet, "/sessions/stats/course/course-1?to=03-10-2025", "")

	handler.CourseStats(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
