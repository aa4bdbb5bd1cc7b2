package calendar

import "time"

// MinutesPerDay is the vertical extent of a day column in minutes.
const MinutesPerDay = 24 * 60

// Window is the inclusive range of instants shown by the calendar. Start is
// always a local midnight and End the last millisecond of the final day.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ResolveWindow computes the visible window for the reference date. All
// arithmetic happens in the location of ref.
//
//   - day: ref 00:00:00.000 through ref 23:59:59.999
//   - week: the Monday on/before ref through the following Sunday
//   - month: the 1st through the last day of ref's month
func ResolveWindow(ref time.Time, mode Mode) Window {
	day := startOfDay(ref)
	switch mode {
	case ModeWeek:
		start := startOfWeek(day)
		return Window{Start: start, End: endOfDay(start.AddDate(0, 0, 6))}
	case ModeMonth:
		start := startOfMonth(day)
		return Window{Start: start, End: endOfDay(start.AddDate(0, 1, -1))}
	default:
		return Window{Start: day, End: endOfDay(day)}
	}
}

// MonthGridRange pads the month window of ref to whole Monday-start weeks.
// The result spans four to six weeks.
func MonthGridRange(ref time.Time) Window {
	month := ResolveWindow(ref, ModeMonth)
	start := startOfWeek(month.Start)
	last := startOfDay(month.End)
	// Sunday on/after the last day of the month.
	end := last.AddDate(0, 0, (7-int(last.Weekday()))%7)
	return Window{Start: start, End: endOfDay(end)}
}

// Days returns the number of calendar days covered by the window.
func (w Window) Days() int {
	if w.End.Before(w.Start) {
		return 0
	}
	return dayDiff(w.End, w.Start) + 1
}

// DayStart returns midnight of the day at offset days from the window start.
func (w Window) DayStart(offset int) time.Time {
	return w.Start.AddDate(0, 0, offset)
}

// Contains reports whether t falls inside the inclusive window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Shift moves a reference date by one unit of the mode. Month shifts keep
// the day of month where possible and clamp it to the target month's length
// so that Jan 31 + 1 month lands on Feb 28/29 rather than in March.
func Shift(ref time.Time, mode Mode, steps int) time.Time {
	switch mode {
	case ModeWeek:
		return ref.AddDate(0, 0, 7*steps)
	case ModeMonth:
		y, m, d := ref.Date()
		first := time.Date(y, m+time.Month(steps), 1, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
		if last := daysIn(first); d > last {
			d = last
		}
		return first.AddDate(0, 0, d-1)
	default:
		return ref.AddDate(0, 0, steps)
	}
}

// SameDay reports whether a and b share a calendar date in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func startOfWeek(t time.Time) time.Time {
	start := startOfDay(t)
	// Monday is the first day of the week; time.Sunday == 0.
	offset := (int(start.Weekday()) + 6) % 7
	return start.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func daysIn(t time.Time) int {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dayDiff counts calendar days from b to a using their wall-clock dates, so
// DST transitions never produce fractional days.
func dayDiff(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ua.Sub(ub) / (24 * time.Hour))
}

// minuteOfDay returns the wall-clock minutes since midnight of t.
func minuteOfDay(t time.Time) float64 {
	return float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60 + float64(t.Nanosecond())/float64(time.Minute)
}
