package testfixtures

import (
	"sync"
	"time"
)

// Zone is the office time zone fixtures are expressed in. Booking times on
// the wire are naive local times, so tests pin a fixed offset.
var Zone = time.FixedZone("JST", 9*60*60)

var referenceTime = time.Date(2025, time.June, 10, 9, 30, 0, 0, Zone)

// ReferenceTime is "now" for fixtures: Tuesday 2025-06-10 09:30 in Zone.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns hour:minute on the given day of June 2025 in Zone.
func At(day, hour, minute int) time.Time {
	return time.Date(2025, time.June, day, hour, minute, 0, 0, Zone)
}

// Clock is a settable time source for services that take a now func.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns c.Now, or time.Now for a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock by d and returns the new time. Moving a booking
// through its lifecycle in tests is usually a few Advance calls.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
