// Package clock provides the wall-clock dependency used for "today"
// calculations (current rate snapshot, invoice counter year, daily sales).
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time in the shop's business location
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SystemClock reads the real wall clock
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock creates a clock that reports time in loc. A nil location means UTC.
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{loc: loc}
}

// Now returns the current time in the clock's location
func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the business location
func (c *SystemClock) Location() *time.Location {
	return c.loc
}

// FixedClock always reports the same instant until moved with Set. Tests
// across packages pin "today" with it.
type FixedClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFixedClock creates a clock pinned to t
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the pinned instant
func (c *FixedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Location returns the location of the pinned instant
func (c *FixedClock) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now.Location()
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// DayBounds returns the start of the calendar day containing now and the
// start of the following day, both in the clock's location.
func DayBounds(c Clock) (time.Time, time.Time) {
	now := c.Now().In(c.Location())
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.Location())
	return start, start.AddDate(0, 0, 1)
}

// Year returns the calendar year of now in the clock's location
func Year(c Clock) int {
	return c.Now().In(c.Location()).Year()
}
