package models

import "time"

// AttendanceStatus represents the status of a student for a class meeting.
type AttendanceStatus string

const (
	StatusPending AttendanceStatus = "Pending"
	StatusPresent AttendanceStatus = "Present"
	StatusLate    AttendanceStatus = "Late"
	StatusAbsent  AttendanceStatus = "Absent"
	StatusExcused AttendanceStatus = "Excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPresent, StatusLate, StatusAbsent, StatusExcused:
		return true
	default:
		return false
	}
}

// Attendance is the flat, non-session-scoped attendance record. It is an
// independent denormalized read path with no referential tie to sessions.
type Attendance struct {
	ID          string           `db:"id" json:"id"`
	CourseCode  string           `db:"course_code" json:"course_code"`
	StudentID   string           `db:"student_id" json:"student_id"`
	Status      AttendanceStatus `db:"status" json:"status"`
	YearSection string           `db:"year_section" json:"year_section,omitempty"`
	Date        time.Time        `db:"date" json:"date"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes flat attendance listing queries.
type AttendanceFilter struct {
	CourseCode string
	StudentID  string
	Status     *AttendanceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
