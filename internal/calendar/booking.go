// Package calendar implements the booking calendar view engine.
//
// The engine is a pipeline of pure stages:
//
//	ResolveWindow -> Bucket -> Layout -> NewGrid
//
// ResolveWindow computes the visible window for a reference date and a view
// mode, Bucket keeps the bookings overlapping that window and splits them
// into per-day segments, Layout converts segments into pixel offsets and
// NewGrid places the laid-out cards on the hour/day grid and forwards click
// events. Controller owns the mode and reference date and re-runs the
// pipeline on navigation.
//
// None of the stages read the wall clock; only Controller does, through the
// now function injected at construction.
package calendar

import (
	"strings"
	"time"
)

// Mode identifies the calendar view granularity.
type Mode string

const (
	// ModeDay shows a single day as 24 hour rows.
	ModeDay Mode = "day"
	// ModeWeek shows the Monday-start week containing the reference date.
	ModeWeek Mode = "week"
	// ModeMonth shows the calendar month containing the reference date.
	ModeMonth Mode = "month"
)

// ParseMode converts a query value into a Mode.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeDay:
		return ModeDay, true
	case ModeWeek:
		return ModeWeek, true
	case ModeMonth:
		return ModeMonth, true
	}
	return "", false
}

// Attendee references a meeting participant. Only used for display counts.
type Attendee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Booking is a room reservation as delivered by the booking backend. The
// engine borrows bookings for the duration of a render and never mutates them.
type Booking struct {
	ID        int64      `json:"id"`
	RoomID    int64      `json:"room_id"`
	RoomName  string     `json:"room_name"`
	UserID    string     `json:"user_id"`
	Purpose   string     `json:"purpose"`
	Status    Status     `json:"status"`
	Start     time.Time  `json:"start_time"`
	End       time.Time  `json:"end_time"`
	Attendees []Attendee `json:"attendees"`
}

// Duration returns End - Start; negative for inverted records.
func (b Booking) Duration() time.Duration {
	return b.End.Sub(b.Start)
}
