package calendar

import (
	"sort"
	"time"
)

// ListEntry is a row of the administrator list view.
type ListEntry struct {
	Booking Booking `json:"booking"`
	Status  Status  `json:"status"`
}

// View is the result of one pipeline run.
type View struct {
	Mode       Mode                `json:"mode"`
	Reference  time.Time           `json:"reference"`
	Window     Window              `json:"window"`
	Positioned []PositionedBooking `json:"-"`
	Cards      []LaidOutBooking    `json:"cards"`
	Grid       *Grid               `json:"-"`
	// List is set instead of the grid fields when the list view is active.
	List []ListEntry `json:"list,omitempty"`
}

// BuildOptions carries the layout and grid settings for Build.
type BuildOptions struct {
	PixelsPerHour float64
	MinCardHeight float64
	ColumnInset   float64
	SplitOverlaps bool
	Grid          GridOptions
}

// Controller owns the view mode and reference date of a calendar page.
// It is not safe for concurrent use.
type Controller struct {
	now       func() time.Time
	isAdmin   bool
	mode      Mode
	reference time.Time
	list      bool
}

// NewController starts in day mode on the current instant.
func NewController(now func() time.Time, isAdmin bool) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{now: now, isAdmin: isAdmin, mode: ModeDay, reference: now()}
}

// Mode returns the active view mode.
func (c *Controller) Mode() Mode { return c.mode }

// Reference returns the reference date.
func (c *Controller) Reference() time.Time { return c.reference }

// ListMode reports whether the administrator list view is active.
func (c *Controller) ListMode() bool { return c.list }

// Window returns the visible window for the current state.
func (c *Controller) Window() Window { return ResolveWindow(c.reference, c.mode) }

// SwitchMode changes the view mode and keeps the reference date. Unknown
// modes are ignored.
func (c *Controller) SwitchMode(mode Mode) bool {
	if _, ok := ParseMode(string(mode)); !ok {
		return false
	}
	c.mode = mode
	return true
}

// SetReference moves to an explicit date, as when a page is opened on a
// bookmarked URL.
func (c *Controller) SetReference(ref time.Time) {
	if !ref.IsZero() {
		c.reference = ref
	}
}

// Prev moves back one day, week or month.
func (c *Controller) Prev() { c.reference = Shift(c.reference, c.mode, -1) }

// Next moves forward one day, week or month.
func (c *Controller) Next() { c.reference = Shift(c.reference, c.mode, 1) }

// CanGoToday reports whether Today would change anything.
func (c *Controller) CanGoToday() bool {
	return c.mode != ModeDay || !SameDay(c.reference, c.now())
}

// Today resets the reference date to now. It is a no-op returning false
// when the day view already shows today.
func (c *Controller) Today() bool {
	if !c.CanGoToday() {
		return false
	}
	c.reference = c.now()
	return true
}

// SetListMode toggles the list view. Only administrators may enable it.
func (c *Controller) SetListMode(enabled bool) bool {
	if enabled && !c.isAdmin {
		return false
	}
	c.list = enabled
	return true
}

// Build runs resolve, bucket, layout and grid construction for the current
// state. In list mode the grid stages are skipped and every booking is
// returned with its derived status, ordered by start time.
func (c *Controller) Build(bookings []Booking, opts BuildOptions) View {
	view := View{Mode: c.mode, Reference: c.reference, Window: c.Window()}
	if c.list {
		view.List = ListBookings(bookings, c.now())
		return view
	}

	layout := DefaultLayoutOptions(c.mode)
	if opts.PixelsPerHour > 0 {
		layout.PixelsPerMinute = opts.PixelsPerHour / 60
	}
	if opts.MinCardHeight > 0 {
		layout.MinCardHeight = opts.MinCardHeight
	}
	if opts.ColumnInset > 0 {
		layout.Inset = opts.ColumnInset
	}
	layout.SplitOverlaps = opts.SplitOverlaps

	gridOpts := opts.Grid
	if gridOpts.PixelsPerHour <= 0 {
		gridOpts.PixelsPerHour = layout.PixelsPerMinute * 60
	}
	if gridOpts.Today.IsZero() {
		gridOpts.Today = c.now()
	}
	if gridOpts.Now.IsZero() {
		gridOpts.Now = c.now()
	}

	view.Positioned = Bucket(bookings, view.Window)
	view.Cards = Layout(view.Positioned, layout)
	view.Grid = NewGrid(c.mode, view.Window, view.Cards, gridOpts)
	return view
}

// ListBookings pairs every booking with its derived status.
func ListBookings(bookings []Booking, now time.Time) []ListEntry {
	entries := make([]ListEntry, 0, len(bookings))
	for _, b := range bookings {
		entries = append(entries, ListEntry{Booking: b, Status: b.DerivedStatus(now)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Booking.Start.Equal(entries[j].Booking.Start) {
			return entries[i].Booking.Start.Before(entries[j].Booking.Start)
		}
		return entries[i].Booking.ID < entries[j].Booking.ID
	})
	return entries
}
