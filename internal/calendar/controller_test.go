package calendar

import (
	"testing"
	"time"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestControllerInitialState(t *testing.T) {
	t.Parallel()

	now := date(2025, time.June, 10, 11, 30)
	c := NewController(fixedNow(now), false)
	if c.Mode() != ModeDay || !c.Reference().Equal(now) || c.ListMode() {
		t.Fatalf("unexpected initial state: %s %s %v", c.Mode(), c.Reference(), c.ListMode())
	}
}

func TestControllerTodayIsNoopOnToday(t *testing.T) {
	t.Parallel()

	now := date(2025, time.June, 10, 11, 30)
	c := NewController(fixedNow(now), false)
	if c.CanGoToday() || c.Today() {
		t.Fatal("today should be disabled on today's day view")
	}

	c.Next()
	if !c.CanGoToday() || !c.Today() {
		t.Fatal("today should be enabled after navigating away")
	}
	if !c.Reference().Equal(now) {
		t.Fatalf("reference = %s, want %s", c.Reference(), now)
	}

	c.SwitchMode(ModeWeek)
	if !c.CanGoToday() {
		t.Fatal("today is only disabled in day mode")
	}
}

func TestControllerNavigation(t *testing.T) {
	t.Parallel()

	c := NewController(fixedNow(date(2024, time.January, 31, 0, 0)), false)
	c.Next()
	if !c.Reference().Equal(date(2024, time.February, 1, 0, 0)) {
		t.Fatalf("day next = %s", c.Reference())
	}
	c.Prev()

	c.SwitchMode(ModeMonth)
	c.Next()
	if !c.Reference().Equal(date(2024, time.February, 29, 0, 0)) {
		t.Fatalf("month next = %s", c.Reference())
	}
	if w := c.Window(); w.Start.Day() != 1 || w.Start.Month() != time.February || w.End.Day() != 29 {
		t.Fatalf("month window = %+v", w)
	}

	c.SwitchMode(ModeWeek)
	c.Prev()
	if !c.Reference().Equal(date(2024, time.February, 22, 0, 0)) {
		t.Fatalf("week prev = %s", c.Reference())
	}

	if c.SwitchMode(Mode("year")) || c.Mode() != ModeWeek {
		t.Fatal("unknown mode changed the controller")
	}
}

func TestControllerListModeIsAdminOnly(t *testing.T) {
	t.Parallel()

	now := date(2025, time.June, 10, 9, 30)
	bookings := []Booking{
		booking(2, date(2025, time.June, 10, 9, 0), date(2025, time.June, 10, 10, 0)),
		booking(1, date(2025, time.June, 9, 9, 0), date(2025, time.June, 9, 10, 0)),
	}

	user := NewController(fixedNow(now), false)
	if user.SetListMode(true) || user.ListMode() {
		t.Fatal("non-admin enabled list mode")
	}

	admin := NewController(fixedNow(now), true)
	if !admin.SetListMode(true) {
		t.Fatal("admin could not enable list mode")
	}
	view := admin.Build(bookings, BuildOptions{})
	if view.Grid != nil || view.Cards != nil {
		t.Fatal("list mode ran the grid pipeline")
	}
	if len(view.List) != 2 || view.List[0].Booking.ID != 1 {
		t.Fatalf("unexpected list %+v", view.List)
	}
	if view.List[0].Status != StatusCompleted || view.List[1].Status != StatusOngoing {
		t.Fatalf("derived statuses = %s/%s", view.List[0].Status, view.List[1].Status)
	}
}

func TestControllerBuild(t *testing.T) {
	t.Parallel()

	now := date(2025, time.June, 10, 8, 0)
	c := NewController(fixedNow(now), false)

	view := c.Build(nil, BuildOptions{})
	if len(view.Cards) != 0 || view.Grid == nil || view.Grid.Rows != HoursPerDay {
		t.Fatalf("empty build = %+v", view)
	}

	c.SwitchMode(ModeWeek)
	view = c.Build([]Booking{booking(1, date(2025, time.June, 12, 9, 0), date(2025, time.June, 12, 9, 30))}, BuildOptions{
		PixelsPerHour: 60,
		MinCardHeight: 10,
	})
	if len(view.Cards) != 1 {
		t.Fatalf("expected one card, got %d", len(view.Cards))
	}
	card := view.Cards[0]
	if card.DayOffset != 3 || card.Top != 540 || card.Height != 30 {
		t.Fatalf("unexpected card %+v", card)
	}
	if view.Grid.Height() != 24*60 {
		t.Fatalf("grid height = %v", view.Grid.Height())
	}
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	start := date(2025, time.June, 10, 9, 0)
	end := date(2025, time.June, 10, 10, 0)
	cases := []struct {
		status Status
		now    time.Time
		want   Status
	}{
		{StatusConfirmed, date(2025, time.June, 10, 8, 59), StatusConfirmed},
		{StatusConfirmed, start, StatusOngoing},
		{StatusConfirmed, end, StatusCompleted},
		{StatusScheduled, date(2025, time.June, 10, 9, 30), StatusScheduled},
		{StatusCancelled, date(2025, time.June, 10, 11, 0), StatusCancelled},
	}
	for _, tc := range cases {
		if got := DeriveStatus(tc.status, start, end, tc.now); got != tc.want {
			t.Fatalf("DeriveStatus(%s, %s) = %s, want %s", tc.status, tc.now.Format(time.Kitchen), got, tc.want)
		}
	}
	if s, ok := ParseStatus("confirmed"); !ok || s != StatusConfirmed {
		t.Fatalf("ParseStatus = %q %v", s, ok)
	}
}
