package calendar

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
	// StatusOngoing is never stored; it is derived for confirmed bookings
	// whose interval contains the current instant.
	StatusOngoing Status = "Ongoing"
)

// ParseStatus matches a stored status case-insensitively.
func ParseStatus(value string) (Status, bool) {
	for _, s := range []Status{StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusOngoing} {
		if strings.EqualFold(string(s), strings.TrimSpace(value)) {
			return s, true
		}
	}
	return "", false
}

// DeriveStatus is the single place where the display status of a booking is
// computed. Confirmed bookings become Ongoing while now is inside
// [start, end) and Completed once now reaches end. Every other status is
// returned as stored.
func DeriveStatus(status Status, start, end, now time.Time) Status {
	if status != StatusConfirmed {
		return status
	}
	if !now.Before(end) {
		return StatusCompleted
	}
	if !now.Before(start) {
		return StatusOngoing
	}
	return StatusConfirmed
}

// DerivedStatus applies DeriveStatus to the booking.
func (b Booking) DerivedStatus(now time.Time) Status {
	return DeriveStatus(b.Status, b.Start, b.End, now)
}
