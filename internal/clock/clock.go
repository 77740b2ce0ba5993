// Package clock defines the time source and the calendar day used for daily quotas.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }

// Manual is a settable clock for tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(now time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Calendar resolves "today" in one fixed location. Quota days never depend
// on the server's local zone.
type Calendar struct {
	clock Clock
	loc   *time.Location
}

func NewCalendar(c Clock, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{clock: c, loc: loc}
}

func (c *Calendar) Now() time.Time { return c.clock.Now() }

func (c *Calendar) Location() *time.Location { return c.loc }

// Today returns the current day key: the local date encoded as midnight UTC.
func (c *Calendar) Today() time.Time {
	return DayOf(c.clock.Now(), c.loc)
}

// StartOfToday is the instant the current local day began.
func (c *Calendar) StartOfToday() time.Time {
	y, m, d := c.clock.Now().In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// NextReset is the instant the current local day ends.
func (c *Calendar) NextReset() time.Time {
	return c.StartOfToday().AddDate(0, 0, 1)
}

func DayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDay(day time.Time) string {
	return day.Format(time.DateOnly)
}
