package models

import "time"

// StudentAttendance is one student's status record within a session. The
// student name is denormalized at session-creation time on purpose: the
// session is a historical record and should not reflect later renames.
type StudentAttendance struct {
	ID          string           `db:"id" json:"id"`
	SessionID   string           `db:"session_id" json:"-"`
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	Status      AttendanceStatus `db:"status" json:"status"`
	TimeIn      *time.Time       `db:"time_in" json:"time_in"`
	Notes       string           `db:"notes" json:"notes"`
}

// Session is a single class meeting for a course on a specific date, with
// the schedule window snapshotted from the matching schedule entry.
type Session struct {
	ID          string              `db:"id" json:"id"`
	CourseID    string              `db:"course_id" json:"course_id"`
	CourseCode  string              `db:"course_code" json:"course_code"`
	CourseName  string              `db:"course_name" json:"course_name"`
	Date        time.Time           `db:"date" json:"date"`
	Day         string              `db:"day" json:"day"`
	StartTime   string              `db:"start_time" json:"start_time"`
	EndTime     string              `db:"end_time" json:"end_time"`
	Room        string              `db:"room" json:"room,omitempty"`
	YearSection string              `db:"year_section" json:"year_section,omitempty"`
	Program     string              `db:"program" json:"program,omitempty"`
	CreatedBy   *string             `db:"created_by" json:"created_by,omitempty"`
	Students    []StudentAttendance `json:"students"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// FindStudent returns the attendance row for the given student, or nil.
func (s *Session) FindStudent(studentID string) *StudentAttendance {
	for i := range s.Students {
		if s.Students[i].StudentID == studentID {
			return &s.Students[i]
		}
	}
	return nil
}

// CountByStatus tallies the student rows per status.
func (s *Session) CountByStatus() map[AttendanceStatus]int {
	counts := make(map[AttendanceStatus]int, 5)
	for _, row := range s.Students {
		counts[row.Status]++
	}
	return counts
}

// SessionSummary is the denormalized shape returned to clients after an
// attendance write.
type SessionSummary struct {
	ID         string    `json:"id"`
	CourseCode string    `json:"course_code"`
	CourseName string    `json:"course_name"`
	Date       time.Time `json:"date"`
	Day        string    `json:"day"`
}

// Summary builds the client-facing session summary.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:         s.ID,
		CourseCode: s.CourseCode,
		CourseName: s.CourseName,
		Date:       s.Date,
		Day:        s.Day,
	}
}

// SessionFilter scopes session listing queries.
type SessionFilter struct {
	CourseID  string
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// StudentSessionRecord is a student's attendance extracted from one session.
type StudentSessionRecord struct {
	SessionID  string     `json:"session_id"`
	CourseID   string     `json:"course_id"`
	CourseCode string     `json:"course_code"`
	CourseName string     `json:"course_name"`
	Date       time.Time  `json:"date"`
	Day        string     `json:"day"`
	StartTime  string     `json:"start_time"`
	EndTime    string     `json:"end_time"`
	Room       string     `json:"room,omitempty"`
	Status     string     `json:"status"`
	TimeIn     *time.Time `json:"time_in"`
	Notes      string     `json:"notes"`
}
