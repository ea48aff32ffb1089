package clock

import (
	"fmt"
	"time"
)

// Clock supplies the current time pinned to a single reference zone. All
// session "ended" comparisons go through a Clock so tests can substitute
// deterministic instants.
type Clock interface {
	Now() time.Time
}

type zoneClock struct {
	loc *time.Location
}

// NewInZone builds a wall clock whose Now() is expressed in the named IANA
// time zone.
func NewInZone(name string) (Clock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return &zoneClock{loc: loc}, nil
}

func (c *zoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Fixed returns a Clock frozen at the provided instant. Intended for tests.
func Fixed(t time.Time) Clock {
	return fixedClock(t)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time {
	return time.Time(c)
}
