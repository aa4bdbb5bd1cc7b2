package scheduler

import (
	"sort"
	"time"
)

// Booking is the minimal view of a reservation needed for conflict checks.
type Booking struct {
	ID        int64
	RoomID    int64
	Attendees []string
	Start     time.Time
	End       time.Time
	Cancelled bool
}

// ConflictType describes the type of conflict detected between bookings.
type ConflictType string

const (
	// ConflictTypeAttendee indicates an attendee is double-booked.
	ConflictTypeAttendee ConflictType = "attendee"
	// ConflictTypeRoom indicates a room is double-booked.
	ConflictTypeRoom ConflictType = "room"
)

// Conflict details an overlapping booking relation that callers can present to users.
type Conflict struct {
	WithBookingID int64
	Type          ConflictType
	AttendeeID    string
	RoomID        int64
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share at least one instant. Back-to-back meetings do not
// overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DetectConflicts identifies conflicts for the candidate booking against existing ones.
//
// Cancelled bookings never conflict, and a booking never conflicts with
// itself (same ID). Room conflicts are reported before attendee conflicts;
// within each type results are ordered by the conflicting booking ID.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	if candidate.Cancelled || !candidate.End.After(candidate.Start) {
		return nil
	}

	attendees := make(map[string]struct{}, len(candidate.Attendees))
	for _, id := range candidate.Attendees {
		if id != "" {
			attendees[id] = struct{}{}
		}
	}

	var rooms, people []Conflict
	for _, other := range existing {
		if other.Cancelled || (candidate.ID != 0 && other.ID == candidate.ID) {
			continue
		}
		if !Overlaps(candidate.Start, candidate.End, other.Start, other.End) {
			continue
		}
		if candidate.RoomID != 0 && other.RoomID == candidate.RoomID {
			rooms = append(rooms, Conflict{WithBookingID: other.ID, Type: ConflictTypeRoom, RoomID: other.RoomID})
		}
		seen := make(map[string]struct{})
		for _, id := range other.Attendees {
			if _, ok := attendees[id]; !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			people = append(people, Conflict{WithBookingID: other.ID, Type: ConflictTypeAttendee, AttendeeID: id})
		}
	}

	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].WithBookingID < rooms[j].WithBookingID })
	sort.SliceStable(people, func(i, j int) bool {
		if people[i].WithBookingID != people[j].WithBookingID {
			return people[i].WithBookingID < people[j].WithBookingID
		}
		return people[i].AttendeeID < people[j].AttendeeID
	})

	if len(rooms)+len(people) == 0 {
		return nil
	}
	return append(rooms, people...)
}

// HasRoomConflict reports whether any conflict in the list is a room conflict.
func HasRoomConflict(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Type == ConflictTypeRoom {
			return true
		}
	}
	return false
}
