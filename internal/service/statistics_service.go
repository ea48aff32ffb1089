package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/attendance-api/internal/models"
	appErrors "github.com/campuskit/attendance-api/pkg/errors"
	"github.com/campuskit/attendance-api/pkg/export"
)

type courseSessionLister interface {
	ListSessionsForCourse(ctx context.Context, courseID string, from, to *time.Time) ([]models.Session, error)
}

// StatisticsService computes attendance aggregates over a course's
// sessions. Unfiltered results are served from Redis when possible; the
// cache is invalidated on every attendance write.
type StatisticsService struct {
	lifecycle courseSessionLister
	courses   courseReader
	students  studentReader
	cache     *CacheService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewStatisticsService constructs the statistics service.
func NewStatisticsService(lifecycle courseSessionLister, courses courseReader, students studentReader, cache *CacheService, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{
		lifecycle: lifecycle,
		courses:   courses,
		students:  students,
		cache:     cache,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// CourseStatistics aggregates per-student and per-session attendance for a
// course. A rostered student missing from a session counts as Absent for
// that session. Date-filtered queries bypass the cache.
func (s *StatisticsService) CourseStatistics(ctx context.Context, courseID string, from, to *time.Time) (*models.CourseStatistics, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	cacheable := from == nil && to == nil
	key := CourseStatsKey(course.CourseCode)
	if cacheable && s.cache != nil {
		var cached models.CourseStatistics
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	sessions, err := s.lifecycle.ListSessionsForCourse(ctx, courseID, from, to)
	if err != nil {
		return nil, err
	}

	stats := s.compute(ctx, course, sessions)
	if cacheable && s.cache != nil {
		s.cache.Set(ctx, key, stats)
	}
	return stats, nil
}

func (s *StatisticsService) compute(ctx context.Context, course *models.Course, sessions []models.Session) *models.CourseStatistics {
	names := map[string]string{}
	if roster, err := s.students.ListByIDNumbers(ctx, course.Students); err != nil {
		// Names are decoration only; fall back to raw IDs.
		s.logger.Warn("failed to load roster names for statistics",
			zap.String("course_code", course.CourseCode), zap.Error(err))
	} else {
		for _, st := range roster {
			names[st.IDNumber] = st.FullName
		}
	}

	totalSessions := len(sessions)
	studentStats := make([]models.StudentStats, 0, len(course.Students))
	var rateSum float64
	for _, studentID := range course.Students {
		st := models.StudentStats{
			StudentID:     studentID,
			StudentName:   names[studentID],
			TotalSessions: totalSessions,
		}
		for i := range sessions {
			row := sessions[i].FindStudent(studentID)
			if row == nil {
				st.Absent++
				continue
			}
			switch row.Status {
			case models.StatusPresent:
				st.Present++
			case models.StatusLate:
				st.Late++
			case models.StatusAbsent:
				st.Absent++
			case models.StatusExcused:
				st.Excused++
			}
		}
		if totalSessions > 0 {
			st.AttendanceRate = round2(float64(st.Present+st.Late) / float64(totalSessions) * 100)
		}
		rateSum += st.AttendanceRate
		studentStats = append(studentStats, st)
	}

	sessionStats := make([]models.SessionStats, 0, totalSessions)
	for i := range sessions {
		session := &sessions[i]
		counts := session.CountByStatus()
		ss := models.SessionStats{
			SessionID: session.ID,
			Date:      session.Date,
			Day:       session.Day,
			Present:   counts[models.StatusPresent],
			Absent:    counts[models.StatusAbsent],
			Late:      counts[models.StatusLate],
			Excused:   counts[models.StatusExcused],
		}
		// Pending rows of a still-active session stay out of the rate.
		counted := ss.Present + ss.Absent + ss.Late + ss.Excused
		if counted > 0 {
			ss.AttendanceRate = round2(float64(ss.Present+ss.Late) / float64(counted) * 100)
		}
		sessionStats = append(sessionStats, ss)
	}

	var average float64
	if len(studentStats) > 0 {
		average = round2(rateSum / float64(len(studentStats)))
	}

	return &models.CourseStatistics{
		Course: models.CourseRef{
			ID:         course.ID,
			CourseCode: course.CourseCode,
			CourseName: course.CourseName,
		},
		OverallStats: models.OverallStats{
			TotalStudents:         len(course.Students),
			TotalSessions:         totalSessions,
			AverageAttendanceRate: average,
			SessionStats:          sessionStats,
		},
		StudentStats: studentStats,
	}
}

// ExportFormat names a supported export encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered export bytes and serving metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportCourseStatistics renders the per-student statistics table as CSV
// or PDF.
func (s *StatisticsService) ExportCourseStatistics(ctx context.Context, courseID string, from, to *time.Time, format ExportFormat) (*ExportResult, error) {
	stats, err := s.CourseStatistics(ctx, courseID, from, to)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Headers: []string{"Student ID", "Student Name", "Present", "Late", "Absent", "Excused", "Total Sessions", "Attendance Rate (%)"},
		Rows:    make([][]string, 0, len(stats.StudentStats)),
	}
	for _, st := range stats.StudentStats {
		table.Rows = append(table.Rows, []string{
			st.StudentID,
			st.StudentName,
			strconv.Itoa(st.Present),
			strconv.Itoa(st.Late),
			strconv.Itoa(st.Absent),
			strconv.Itoa(st.Excused),
			strconv.Itoa(st.TotalSessions),
			fmt.Sprintf("%.2f", st.AttendanceRate),
		})
	}

	switch format {
	case FormatCSV:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("attendance-%s.csv", stats.Course.CourseCode),
		}, nil
	case FormatPDF:
		title := fmt.Sprintf("Attendance Report %s", stats.Course.CourseCode)
		content, err := s.pdf.Render(table, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("attendance-%s.pdf", stats.Course.CourseCode),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
