package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestResolveWindowWeekStartsOnMonday(t *testing.T) {
	t.Parallel()

	// 2025-06-09 is a Monday.
	for day := 9; day <= 15; day++ {
		ref := date(2025, time.June, day, 17, 45)
		w := ResolveWindow(ref, ModeWeek)

		if w.Start.Weekday() != time.Monday {
			t.Fatalf("%s: start weekday = %s", ref.Weekday(), w.Start.Weekday())
		}
		if !w.Start.Equal(date(2025, time.June, 9, 0, 0)) {
			t.Fatalf("%s: start = %s", ref.Weekday(), w.Start)
		}
		wantEnd := time.Date(2025, time.June, 15, 23, 59, 59, int(999*time.Millisecond), time.UTC)
		if !w.End.Equal(wantEnd) || w.End.Weekday() != time.Sunday {
			t.Fatalf("%s: end = %s", ref.Weekday(), w.End)
		}
		if w.Days() != 7 {
			t.Fatalf("%s: days = %d", ref.Weekday(), w.Days())
		}
	}
}

func TestResolveWindowDay(t *testing.T) {
	t.Parallel()

	w := ResolveWindow(date(2025, time.June, 10, 13, 7), ModeDay)
	if !w.Start.Equal(date(2025, time.June, 10, 0, 0)) {
		t.Fatalf("start = %s", w.Start)
	}
	if w.End.Hour() != 23 || w.End.Minute() != 59 || w.End.Second() != 59 || w.End.Nanosecond() != int(999*time.Millisecond) {
		t.Fatalf("end = %s", w.End)
	}
	if w.Days() != 1 {
		t.Fatalf("days = %d", w.Days())
	}
}

func TestResolveWindowMonthStaysInsideMonth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		month   time.Month
		year    int
		lastDay int
	}{
		{time.January, 2025, 31},
		{time.February, 2024, 29},
		{time.February, 2025, 28},
		{time.April, 2025, 30},
	}
	for _, tc := range cases {
		for day := 1; day <= tc.lastDay; day++ {
			w := ResolveWindow(date(tc.year, tc.month, day, 12, 0), ModeMonth)
			if w.Start.Day() != 1 || w.Start.Month() != tc.month || w.Start.Hour() != 0 {
				t.Fatalf("%d-%02d-%02d: start = %s", tc.year, tc.month, day, w.Start)
			}
			if w.End.Day() != tc.lastDay || w.End.Month() != tc.month {
				t.Fatalf("%d-%02d-%02d: end = %s", tc.year, tc.month, day, w.End)
			}
		}
	}
}

func TestMonthGridRangePadsToWholeWeeks(t *testing.T) {
	t.Parallel()

	// June 2025 starts on a Sunday and ends on a Monday.
	w := MonthGridRange(date(2025, time.June, 18, 0, 0))
	if !w.Start.Equal(date(2025, time.May, 26, 0, 0)) {
		t.Fatalf("start = %s", w.Start)
	}
	if got := startOfDay(w.End); !got.Equal(date(2025, time.July, 6, 0, 0)) {
		t.Fatalf("end = %s", w.End)
	}
	if w.Days()%7 != 0 {
		t.Fatalf("days = %d, want whole weeks", w.Days())
	}
}

func TestShift(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		ref   time.Time
		mode  Mode
		steps int
		want  time.Time
	}{
		{"day forward", date(2025, time.June, 30, 9, 0), ModeDay, 1, date(2025, time.July, 1, 9, 0)},
		{"week back", date(2025, time.June, 10, 9, 0), ModeWeek, -1, date(2025, time.June, 3, 9, 0)},
		{"month clamps leap year", date(2024, time.January, 31, 0, 0), ModeMonth, 1, date(2024, time.February, 29, 0, 0)},
		{"month clamps", date(2025, time.March, 31, 0, 0), ModeMonth, -1, date(2025, time.February, 28, 0, 0)},
		{"month across year", date(2025, time.December, 15, 0, 0), ModeMonth, 1, date(2026, time.January, 15, 0, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Shift(tc.ref, tc.mode, tc.steps); !got.Equal(tc.want) {
				t.Fatalf("Shift = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	if mode, ok := ParseMode(" Week "); !ok || mode != ModeWeek {
		t.Fatalf("ParseMode = %q, %v", mode, ok)
	}
	if _, ok := ParseMode("year"); ok {
		t.Fatal("expected unknown mode to be rejected")
	}
}
