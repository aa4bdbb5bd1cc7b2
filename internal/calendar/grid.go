package calendar

import (
	"fmt"
	"time"
)

// HoursPerDay is the number of hour rows in day and week grids.
const HoursPerDay = 24

const defaultMonthCellHour = 9

// CellClickFunc receives the date (midnight) and hour of a clicked empty cell.
type CellClickFunc func(date time.Time, hour int)

// BookingClickFunc receives the booking behind a clicked card.
type BookingClickFunc func(booking Booking)

// GridOptions configures rendering and event forwarding.
type GridOptions struct {
	PixelsPerHour float64
	// MonthCellHour is reported as the hour for clicks on month cells.
	// Zero selects 09:00.
	MonthCellHour int
	// Today highlights the matching column when non-zero.
	Today time.Time
	// Now drives the derived status shown on cards; zero shows stored status.
	Now            time.Time
	OnCellClick    CellClickFunc
	OnBookingClick BookingClickFunc
	// CellLink and CardLink build the hrefs of the rendered grid.
	CellLink func(date time.Time, hour int) string
	CardLink func(booking Booking) string
}

// TargetKind distinguishes what a pointer event landed on.
type TargetKind int

const (
	// TargetCell is an empty grid cell.
	TargetCell TargetKind = iota
	// TargetBooking is a booking card.
	TargetBooking
)

// Target describes a pointer event on the grid. Row and Column address a
// cell (hour row and day column, or week row and weekday column in month
// mode); BookingID addresses a card.
type Target struct {
	Kind      TargetKind
	Row       int
	Column    int
	BookingID int64
}

// MonthCell is one day of the padded month grid.
type MonthCell struct {
	Date    time.Time
	InMonth bool
	Cards   []LaidOutBooking
}

// Grid is the static hour/day grid with the laid-out cards overlaid on it.
// It holds no state besides what NewGrid computed.
type Grid struct {
	Mode    Mode
	Window  Window
	Columns []time.Time
	Rows    int
	Cards   []LaidOutBooking
	// Weeks is only populated in month mode.
	Weeks [][]MonthCell

	opts GridOptions
}

// NewGrid builds the grid for the window. Cards must come from Layout over
// the same window.
func NewGrid(mode Mode, window Window, cards []LaidOutBooking, opts GridOptions) *Grid {
	if !(opts.PixelsPerHour > 0) {
		opts.PixelsPerHour = DefaultPixelsPerHour
	}
	if opts.MonthCellHour <= 0 || opts.MonthCellHour >= HoursPerDay {
		opts.MonthCellHour = defaultMonthCellHour
	}
	if opts.CellLink == nil {
		opts.CellLink = defaultCellLink
	}
	if opts.CardLink == nil {
		opts.CardLink = defaultCardLink
	}

	g := &Grid{Mode: mode, Window: window, Cards: cards, opts: opts}
	switch mode {
	case ModeMonth:
		g.Weeks = buildMonthWeeks(window, cards)
		g.Rows = len(g.Weeks)
	case ModeWeek:
		g.Rows = HoursPerDay
		g.Columns = make([]time.Time, 7)
		for i := range g.Columns {
			g.Columns[i] = window.DayStart(i)
		}
	default:
		g.Rows = HoursPerDay
		g.Columns = []time.Time{window.Start}
	}
	return g
}

func buildMonthWeeks(window Window, cards []LaidOutBooking) [][]MonthCell {
	padded := MonthGridRange(window.Start)
	byDay := make(map[string][]LaidOutBooking)
	for _, card := range cards {
		key := card.Day.Format(time.DateOnly)
		byDay[key] = append(byDay[key], card)
	}

	weeks := make([][]MonthCell, 0, 6)
	for weekStart := padded.Start; !weekStart.After(padded.End); weekStart = weekStart.AddDate(0, 0, 7) {
		week := make([]MonthCell, 7)
		for i := range week {
			date := weekStart.AddDate(0, 0, i)
			week[i] = MonthCell{
				Date:    date,
				InMonth: window.Contains(date),
				Cards:   byDay[date.Format(time.DateOnly)],
			}
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// CellAt resolves a row/column pair into the date and hour it represents.
func (g *Grid) CellAt(row, column int) (time.Time, int, bool) {
	if g == nil || row < 0 || column < 0 {
		return time.Time{}, 0, false
	}
	if g.Mode == ModeMonth {
		if row >= len(g.Weeks) || column >= 7 {
			return time.Time{}, 0, false
		}
		return g.Weeks[row][column].Date, g.opts.MonthCellHour, true
	}
	if row >= g.Rows || column >= len(g.Columns) {
		return time.Time{}, 0, false
	}
	return g.Columns[column], row, true
}

// ClickCell forwards a click on an empty cell to OnCellClick.
func (g *Grid) ClickCell(row, column int) bool {
	date, hour, ok := g.CellAt(row, column)
	if !ok {
		return false
	}
	if g.opts.OnCellClick != nil {
		g.opts.OnCellClick(date, hour)
	}
	return true
}

// ClickBooking forwards a click on a card to OnBookingClick.
func (g *Grid) ClickBooking(id int64) bool {
	if g == nil {
		return false
	}
	for _, card := range g.Cards {
		if card.Booking.ID != id {
			continue
		}
		if g.opts.OnBookingClick != nil {
			g.opts.OnBookingClick(card.Booking)
		}
		return true
	}
	return false
}

// Dispatch routes a pointer event. Card clicks stop there and never reach
// the cell underneath.
func (g *Grid) Dispatch(target Target) bool {
	if target.Kind == TargetBooking {
		return g.ClickBooking(target.BookingID)
	}
	return g.ClickCell(target.Row, target.Column)
}

// Height returns the pixel height of the hour grid body.
func (g *Grid) Height() float64 {
	return float64(HoursPerDay) * g.opts.PixelsPerHour
}

func defaultCellLink(date time.Time, hour int) string {
	return fmt.Sprintf("/bookings/new?date=%s&hour=%d", date.Format(time.DateOnly), hour)
}

func defaultCardLink(booking Booking) string {
	return fmt.Sprintf("/bookings/%d/edit", booking.ID)
}
