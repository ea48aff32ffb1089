package models

import "time"

// DayNames lists the accepted day-of-week values in schedule entries.
var DayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// ValidDay reports whether the value is one of the seven day names.
func ValidDay(day string) bool {
	for _, d := range DayNames {
		if d == day {
			return true
		}
	}
	return false
}

// ScheduleEntry is one weekly meeting slot owned by a course. Sessions copy
// start/end/room at creation time, so later edits never rewrite history.
type ScheduleEntry struct {
	ID        string `db:"id" json:"id"`
	CourseID  string `db:"course_id" json:"-"`
	Day       string `db:"day_of_week" json:"day"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
	Room      string `db:"room" json:"room,omitempty"`
	Position  int    `db:"position" json:"-"`
}

// Course aggregates the schedule list and student roster.
type Course struct {
	ID             string          `db:"id" json:"id"`
	CourseCode     string          `db:"course_code" json:"course_code"`
	CourseName     string          `db:"course_name" json:"course_name"`
	InstructorID   string          `db:"instructor_id" json:"instructor_id"`
	InstructorName string          `db:"instructor_name" json:"instructor_name,omitempty"`
	EnrollmentCode string          `db:"enrollment_code" json:"enrollment_code"`
	AttendanceCode string          `db:"attendance_code" json:"attendance_code"`
	Room           string          `db:"room" json:"room,omitempty"`
	Program        string          `db:"program" json:"program,omitempty"`
	YearSection    string          `db:"year_section" json:"year_section,omitempty"`
	Schedules      []ScheduleEntry `json:"schedules"`
	Students       []string        `json:"students"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// IsStudentEnrolled checks roster membership.
func (c *Course) IsStudentEnrolled(studentID string) bool {
	for _, id := range c.Students {
		if id == studentID {
			return true
		}
	}
	return false
}
