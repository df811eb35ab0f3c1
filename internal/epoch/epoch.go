// Package epoch models the weekly period that bounds a sync epoch.
package epoch

import (
	"sync"
	"time"

	"studysync/internal/models"
)

// Clock abstracts the wall clock so week math can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock is a settable clock for tests.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock returns a clock frozen at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the frozen time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Current returns the ISO week containing now, in UTC: Monday 00:01:00 through
// Sunday 23:59:59. The minute after midnight Monday belongs to the reset.
func Current(now time.Time) models.Window {
	now = now.UTC()
	// time.Weekday has Sunday as 0; ISO weeks start on Monday.
	offset := (int(now.Weekday()) + 6) % 7
	monday := time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, time.UTC)
	return models.Window{
		Start: monday.Add(time.Minute),
		End:   monday.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute + 59*time.Second),
	}
}

// WeekStart returns Monday 00:00 UTC of the week containing now.
func WeekStart(now time.Time) time.Time {
	return Current(now).Start.Add(-time.Minute)
}

// NextWeekStart returns the Monday 00:00 UTC strictly after now.
func NextWeekStart(now time.Time) time.Time {
	return WeekStart(now).AddDate(0, 0, 7)
}
