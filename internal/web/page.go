// Package web serves the calendar page and the dashboard on top of the
// booking API client.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/smartspace/internal/backend"
	"github.com/example/smartspace/internal/calendar"
)

// DataSource is the subset of the booking API the page reads.
type DataSource interface {
	ListBookings(ctx context.Context, q backend.BookingQuery) ([]calendar.Booking, error)
	ListRooms(ctx context.Context) ([]backend.Room, error)
	ListEmployees(ctx context.Context) ([]backend.Employee, error)
}

// CalendarPage holds the state behind one calendar view: the controller,
// the bookings of the visible window and the room and employee lookups.
// Every navigation refetches; Load results that were overtaken by a newer
// Load are dropped.
type CalendarPage struct {
	source  DataSource
	isAdmin bool
	logger  *slog.Logger
	seq     Sequencer

	mu         sync.Mutex
	controller *calendar.Controller
	bookings   []calendar.Booking
	employees  []backend.Employee
	loadErr    error
}

// NewCalendarPage starts a page in day mode on now().
func NewCalendarPage(source DataSource, now func() time.Time, isAdmin bool, logger *slog.Logger) *CalendarPage {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarPage{
		source:     source,
		isAdmin:    isAdmin,
		logger:     logger.With("component", "calendar_page"),
		controller: calendar.NewController(now, isAdmin),
	}
}

// Load fetches the bookings of the current window and the lookups. It
// reports whether the result was applied; false means a newer Load started
// in the meantime. A bookings failure is kept in Err and also returned.
func (p *CalendarPage) Load(ctx context.Context) (bool, error) {
	ticket := p.seq.Next()

	p.mu.Lock()
	window := p.controller.Window()
	mode := p.controller.Mode()
	p.mu.Unlock()

	logger := p.logger.With("ticket", ticket, "mode", string(mode))
	bookings, err := p.source.ListBookings(ctx, backend.BookingQuery{Start: window.Start, End: window.End})
	if err != nil {
		logger.ErrorContext(ctx, "failed to load bookings", "error", err)
	}

	rooms, roomsErr := p.source.ListRooms(ctx)
	if roomsErr != nil {
		logger.WarnContext(ctx, "failed to load rooms", "error", roomsErr)
	}
	var employees []backend.Employee
	if p.isAdmin {
		var employeesErr error
		if employees, employeesErr = p.source.ListEmployees(ctx); employeesErr != nil {
			logger.WarnContext(ctx, "failed to load employees", "error", employeesErr)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seq.Current(ticket) {
		logger.DebugContext(ctx, "discarding stale bookings response")
		return false, nil
	}

	p.loadErr = err
	p.employees = employees
	if err != nil {
		p.bookings = nil
		return true, err
	}
	p.bookings = withRoomNames(bookings, rooms)
	logger.DebugContext(ctx, "bookings loaded", "count", len(p.bookings))
	return true, nil
}

// Err returns the error of the last applied Load.
func (p *CalendarPage) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

// Bookings returns the bookings of the last applied Load.
func (p *CalendarPage) Bookings() []calendar.Booking {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]calendar.Booking(nil), p.bookings...)
}

// EmployeeName resolves a user id through the employee lookup, falling back
// to the id itself.
func (p *CalendarPage) EmployeeName(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.employees {
		if e.ID == id && e.Name != "" {
			return e.Name
		}
	}
	return id
}

// Mode returns the active view mode.
func (p *CalendarPage) Mode() calendar.Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.Mode()
}

// Reference returns the reference date.
func (p *CalendarPage) Reference() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.Reference()
}

// ListMode reports whether the administrator list is shown.
func (p *CalendarPage) ListMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.ListMode()
}

// CanGoToday reports whether Today would move the view.
func (p *CalendarPage) CanGoToday() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.CanGoToday()
}

// SwitchMode changes the mode and reloads.
func (p *CalendarPage) SwitchMode(ctx context.Context, mode calendar.Mode) error {
	return p.navigate(ctx, func(c *calendar.Controller) bool { return c.SwitchMode(mode) })
}

// SetReference jumps to ref and reloads.
func (p *CalendarPage) SetReference(ctx context.Context, ref time.Time) error {
	return p.navigate(ctx, func(c *calendar.Controller) bool {
		c.SetReference(ref)
		return true
	})
}

// Prev moves back one period and reloads.
func (p *CalendarPage) Prev(ctx context.Context) error {
	return p.navigate(ctx, func(c *calendar.Controller) bool {
		c.Prev()
		return true
	})
}

// Next moves forward one period and reloads.
func (p *CalendarPage) Next(ctx context.Context) error {
	return p.navigate(ctx, func(c *calendar.Controller) bool {
		c.Next()
		return true
	})
}

// Today returns to the current date and reloads unless the day view
// already shows today.
func (p *CalendarPage) Today(ctx context.Context) error {
	return p.navigate(ctx, func(c *calendar.Controller) bool { return c.Today() })
}

// SetListMode toggles the administrator list and reloads.
func (p *CalendarPage) SetListMode(ctx context.Context, enabled bool) error {
	return p.navigate(ctx, func(c *calendar.Controller) bool { return c.SetListMode(enabled) })
}

func (p *CalendarPage) navigate(ctx context.Context, move func(c *calendar.Controller) bool) error {
	p.mu.Lock()
	changed := move(p.controller)
	p.mu.Unlock()
	if !changed {
		return nil
	}
	_, err := p.Load(ctx)
	return err
}

// View runs the calendar pipeline over the loaded bookings.
func (p *CalendarPage) View(opts calendar.BuildOptions) calendar.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.Build(p.bookings, opts)
}

func withRoomNames(bookings []calendar.Booking, rooms []backend.Room) []calendar.Booking {
	if len(rooms) == 0 {
		return bookings
	}
	names := make(map[int64]string, len(rooms))
	for _, r := range rooms {
		names[r.ID] = r.Name
	}
	for i := range bookings {
		if bookings[i].RoomName == "" {
			bookings[i].RoomName = names[bookings[i].RoomID]
		}
	}
	return bookings
}
