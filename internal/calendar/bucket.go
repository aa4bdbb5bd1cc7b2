package calendar

import (
	"sort"
	"time"
)

// PositionedBooking is one day-segment of a booking that overlaps the
// visible window. Bookings crossing midnight produce one segment per
// touched day, each clamped into its day column.
type PositionedBooking struct {
	Booking Booking `json:"booking"`
	// DayOffset is the column index relative to the window start.
	DayOffset int `json:"day_offset"`
	// Day is midnight of the column the segment renders in.
	Day time.Time `json:"day"`
	// StartMinute and EndMinute are clamped into [0, MinutesPerDay].
	StartMinute float64 `json:"start_minute"`
	EndMinute   float64 `json:"end_minute"`
	// Segment numbers the pieces of a split booking from zero.
	Segment  int `json:"segment"`
	Segments int `json:"segments"`
	// ContinuesBefore and ContinuesAfter mark clamped edges.
	ContinuesBefore bool `json:"continues_before"`
	ContinuesAfter  bool `json:"continues_after"`
}

// Minutes returns the clamped duration of the segment, never negative.
func (p PositionedBooking) Minutes() float64 {
	if p.EndMinute <= p.StartMinute {
		return 0
	}
	return p.EndMinute - p.StartMinute
}

// Bucket keeps the bookings whose interval touches the window and assigns
// each of them to day columns. A booking is included iff
// start <= window.End and end >= window.Start.
//
// Bookings with a zero start or end are treated as malformed and skipped.
// Inverted bookings (end before start) become a single zero-length segment
// on their start day. The result is ordered by day, start minute, booking id
// and segment so rendering never depends on backend response order.
func Bucket(bookings []Booking, w Window) []PositionedBooking {
	out := make([]PositionedBooking, 0, len(bookings))
	days := w.Days()
	if days == 0 {
		return out
	}
	loc := w.Start.Location()

	for _, booking := range bookings {
		if booking.Start.IsZero() || booking.End.IsZero() {
			continue
		}
		start := booking.Start.In(loc)
		end := booking.End.In(loc)
		if start.After(w.End) || end.Before(w.Start) {
			continue
		}
		out = append(out, segmentBooking(booking, start, end, w, days)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DayOffset != b.DayOffset {
			return a.DayOffset < b.DayOffset
		}
		if a.StartMinute != b.StartMinute {
			return a.StartMinute < b.StartMinute
		}
		if a.Booking.ID != b.Booking.ID {
			return a.Booking.ID < b.Booking.ID
		}
		return a.Segment < b.Segment
	})
	return out
}

func segmentBooking(booking Booking, start, end time.Time, w Window, days int) []PositionedBooking {
	if !end.After(start) {
		offset := clampOffset(dayDiff(start, w.Start), days)
		day := w.DayStart(offset)
		minute := 0.0
		if !start.Before(day) {
			minute = clampMinute(minuteOfDay(start))
		}
		return []PositionedBooking{{
			Booking:         booking,
			DayOffset:       offset,
			Day:             day,
			StartMinute:     minute,
			EndMinute:       minute,
			Segments:        1,
			ContinuesBefore: start.Before(w.Start),
		}}
	}

	first := clampOffset(dayDiff(start, w.Start), days)
	last := clampOffset(dayDiff(end, w.Start), days)

	segments := make([]PositionedBooking, 0, last-first+1)
	var boundary *PositionedBooking
	for offset := first; offset <= last; offset++ {
		dayStart := w.DayStart(offset)
		dayEnd := w.DayStart(offset + 1)

		startMinute := 0.0
		if start.After(dayStart) {
			startMinute = clampMinute(minuteOfDay(start))
		}
		endMinute := float64(MinutesPerDay)
		if end.Before(dayEnd) {
			endMinute = clampMinute(minuteOfDay(end))
		}

		segment := PositionedBooking{
			Booking:         booking,
			DayOffset:       offset,
			Day:             dayStart,
			StartMinute:     startMinute,
			EndMinute:       endMinute,
			ContinuesBefore: start.Before(dayStart),
			ContinuesAfter:  end.After(dayEnd),
		}
		if endMinute > startMinute {
			segments = append(segments, segment)
			continue
		}
		if boundary == nil {
			boundary = &segment
		}
	}

	// A booking that only touches the window edge still appears once.
	if len(segments) == 0 && boundary != nil {
		segments = append(segments, *boundary)
	}
	for i := range segments {
		segments[i].Segment = i
		segments[i].Segments = len(segments)
	}
	return segments
}

func clampOffset(offset, days int) int {
	if offset < 0 {
		return 0
	}
	if offset > days-1 {
		return days - 1
	}
	return offset
}

func clampMinute(minute float64) float64 {
	if minute < 0 {
		return 0
	}
	if minute > MinutesPerDay {
		return MinutesPerDay
	}
	return minute
}
