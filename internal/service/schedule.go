package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/campuskit/attendance-api/internal/models"
)

// ResolveSchedule returns the course's schedule entry for the given day of
// week, or nil when the course does not meet that day. Entries are scanned
// in stored order, so a course with two rows for the same day resolves to
// the first one.
func ResolveSchedule(course *models.Course, day string) *models.ScheduleEntry {
	if course == nil {
		return nil
	}
	for i := range course.Schedules {
		if course.Schedules[i].Day == day {
			return &course.Schedules[i]
		}
	}
	return nil
}

var wallClockPattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*$`)

// parseWallClock converts a "H:MM AM/PM" string (1 or 2 digit hour) into a
// 24-hour hour/minute pair. 12 AM maps to hour 0, PM hours 1-11 gain 12.
func parseWallClock(raw string) (hour, minute int, ok bool) {
	match := wallClockPattern.FindStringSubmatch(strings.ToUpper(raw))
	if match == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(match[1])
	minute, _ = strconv.Atoi(match[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, 0, false
	}
	switch match[3] {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	return hour, minute, true
}
