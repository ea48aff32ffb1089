package models

import "time"

// StudentStats aggregates one student's attendance across sessions. There
// is deliberately no Pending bucket: a Pending row in a still-active
// session counts toward no status, though it still sits in TotalSessions
// and therefore lowers the rate.
type StudentStats struct {
	StudentID      string  `json:"student_id"`
	StudentName    string  `json:"student_name"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late"`
	Excused        int     `json:"excused"`
	TotalSessions  int     `json:"total_sessions"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// SessionStats aggregates one session's roster state.
type SessionStats struct {
	SessionID      string    `json:"session_id"`
	Date           time.Time `json:"date"`
	Day            string    `json:"day"`
	Present        int       `json:"present"`
	Absent         int       `json:"absent"`
	Late           int       `json:"late"`
	Excused        int       `json:"excused"`
	AttendanceRate float64   `json:"attendance_rate"`
}

// OverallStats summarizes a course across all counted sessions.
type OverallStats struct {
	TotalStudents         int            `json:"total_students"`
	TotalSessions         int            `json:"total_sessions"`
	AverageAttendanceRate float64        `json:"average_attendance_rate"`
	SessionStats          []SessionStats `json:"session_stats"`
}

// CourseRef identifies the course a statistics payload belongs to.
type CourseRef struct {
	ID         string `json:"id"`
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
}

// CourseStatistics is the full statistics payload for a course.
type CourseStatistics struct {
	Course       CourseRef      `json:"course"`
	OverallStats OverallStats   `json:"overall_stats"`
	StudentStats []StudentStats `json:"student_stats"`
}
