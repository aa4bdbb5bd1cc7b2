package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestGridRendersEmptyDay(t *testing.T) {
	t.Parallel()

	w := ResolveWindow(date(2025, time.June, 10, 0, 0), ModeDay)
	grid := NewGrid(ModeDay, w, Layout(Bucket(nil, w), DefaultLayoutOptions(ModeDay)), GridOptions{})

	var buf bytes.Buffer
	if err := grid.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()
	if got := strings.Count(html, `class="calendar-row"`); got != HoursPerDay {
		t.Fatalf("rendered %d rows, want %d", got, HoursPerDay)
	}
	if strings.Contains(html, "data-booking-id") {
		t.Fatal("empty grid rendered a card")
	}
	if !strings.Contains(html, `data-date="2025-06-10"`) {
		t.Fatal("cells are missing their date")
	}
}

func TestGridRendersCards(t *testing.T) {
	t.Parallel()

	w := ResolveWindow(date(2025, time.June, 10, 0, 0), ModeWeek)
	b := booking(42, date(2025, time.June, 10, 9, 0), date(2025, time.June, 10, 10, 0))
	b.Purpose = "Planning <draft>"
	grid := NewGrid(ModeWeek, w, Layout(Bucket([]Booking{b}, w), DefaultLayoutOptions(ModeWeek)), GridOptions{})

	var buf bytes.Buffer
	if err := grid.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		`data-booking-id="42"`,
		"top:720.00px;height:80.00px",
		"Planning &lt;draft&gt;",
		"09:00-10:00",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered grid missing %q", want)
		}
	}
	if got := strings.Count(html, `class="calendar-cell"`); got != HoursPerDay*7 {
		t.Fatalf("rendered %d cells, want %d", got, HoursPerDay*7)
	}
}

func TestGridRendersMonth(t *testing.T) {
	t.Parallel()

	w := ResolveWindow(date(2025, time.June, 10, 0, 0), ModeMonth)
	b := booking(5, date(2025, time.June, 18, 14, 0), date(2025, time.June, 18, 15, 0))
	grid := NewGrid(ModeMonth, w, Layout(Bucket([]Booking{b}, w), DefaultLayoutOptions(ModeMonth)), GridOptions{})

	if grid.Rows != 6 || len(grid.Weeks) != 6 {
		t.Fatalf("expected 6 week rows, got %d", grid.Rows)
	}
	if grid.Weeks[0][0].InMonth || !grid.Weeks[0][6].InMonth {
		t.Fatal("padding days are not marked outside the month")
	}
	// June 18 2025 is the Wednesday of the fourth row.
	if cell := grid.Weeks[3][2]; cell.Date.Day() != 18 || len(cell.Cards) != 1 {
		t.Fatalf("unexpected cell %+v", cell)
	}

	var buf bytes.Buffer
	if err := grid.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), `data-booking-id="5"`) {
		t.Fatal("month grid missing card")
	}
}

func TestGridCellClick(t *testing.T) {
	t.Parallel()

	var gotDate time.Time
	gotHour := -1
	opts := GridOptions{OnCellClick: func(d time.Time, hour int) { gotDate, gotHour = d, hour }}

	week := ResolveWindow(date(2025, time.June, 10, 0, 0), ModeWeek)
	grid := NewGrid(ModeWeek, week, nil, opts)
	if !grid.ClickCell(14, 2) {
		t.Fatal("click on a valid cell was rejected")
	}
	if !gotDate.Equal(date(2025, time.June, 11, 0, 0)) || gotHour != 14 {
		t.Fatalf("cell click = %s %d", gotDate, gotHour)
	}
	if grid.ClickCell(24, 0) || grid.ClickCell(0, 7) {
		t.Fatal("out-of-range cell accepted")
	}

	month := ResolveWindow(date(2025, time.June, 10, 0, 0), ModeMonth)
	grid = NewGrid(ModeMonth, month, nil, opts)
	if !grid.ClickCell(0, 0) {
		t.Fatal("month cell rejected")
	}
	if !gotDate.Equal(date(2025, time.May, 26, 0, 0)) || gotHour != 9 {
		t.Fatalf("month cell click = %s %d", gotDate, gotHour)
	}
}

func TestGridDispatchStopsAtCard(t *testing.T) {
	t.Parallel()

	w := ResolveWindow(date(2025, time.June, 10, 0, 0), ModeDay)
	b := booking(8, date(2025, time.June, 10, 9, 0), date(2025, time.June, 10, 10, 0))
	cellClicks := 0
	var clicked Booking
	grid := NewGrid(ModeDay, w, Layout(Bucket([]Booking{b}, w), DefaultLayoutOptions(ModeDay)), GridOptions{
		OnCellClick:    func(time.Time, int) { cellClicks++ },
		OnBookingClick: func(b Booking) { clicked = b },
	})

	if !grid.Dispatch(Target{Kind: TargetBooking, Row: 9, BookingID: 8}) {
		t.Fatal("card click not handled")
	}
	if clicked.ID != 8 {
		t.Fatalf("booking click = %+v", clicked)
	}
	if cellClicks != 0 {
		t.Fatal("card click reached the cell handler")
	}

	if !grid.Dispatch(Target{Kind: TargetCell, Row: 9}) || cellClicks != 1 {
		t.Fatalf("cell dispatch failed, clicks = %d", cellClicks)
	}
	if grid.Dispatch(Target{Kind: TargetBooking, BookingID: 99}) {
		t.Fatal("unknown booking dispatched")
	}
}

func TestGridCardsShowDerivedStatus(t *testing.T) {
	t.Parallel()

	w := ResolveWindow(date(2025, time.June, 10, 0, 0), ModeDay)
	b := booking(3, date(2025, time.June, 10, 9, 0), date(2025, time.June, 10, 10, 0))
	cards := Layout(Bucket([]Booking{b}, w), DefaultLayoutOptions(ModeDay))

	render := func(opts GridOptions) string {
		var buf bytes.Buffer
		if err := NewGrid(ModeDay, w, cards, opts).Render(&buf); err != nil {
			t.Fatalf("Render: %v", err)
		}
		return buf.String()
	}

	if html := render(GridOptions{Now: date(2025, time.June, 10, 9, 30)}); !strings.Contains(html, "status-ongoing") {
		t.Fatal("confirmed booking in progress should render as ongoing")
	}
	if html := render(GridOptions{}); !strings.Contains(html, "status-confirmed") {
		t.Fatal("without a clock the stored status is rendered")
	}
}
