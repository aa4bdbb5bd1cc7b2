package calendar

import (
	"math"
	"sort"

	"github.com/example/smartspace/internal/scheduler"
)

const (
	// DefaultPixelsPerHour is the height of one hour row.
	DefaultPixelsPerHour = 80.0
	// DefaultMinCardHeight keeps short bookings readable.
	DefaultMinCardHeight = 64.0
	// DefaultColumnInset separates adjacent day columns.
	DefaultColumnInset = 4.0
)

// LayoutOptions configures the pixel layout.
type LayoutOptions struct {
	PixelsPerMinute float64
	MinCardHeight   float64
	// Columns is the number of day columns: 1 for day and month, 7 for week.
	Columns int
	// Inset is subtracted in pixels on each horizontal side of a card.
	Inset float64
	// SplitOverlaps shares a column between overlapping cards.
	SplitOverlaps bool
}

// DefaultLayoutOptions returns the layout used by the web calendar.
func DefaultLayoutOptions(mode Mode) LayoutOptions {
	columns := 1
	if mode == ModeWeek {
		columns = 7
	}
	return LayoutOptions{
		PixelsPerMinute: DefaultPixelsPerHour / 60,
		MinCardHeight:   DefaultMinCardHeight,
		Columns:         columns,
		Inset:           DefaultColumnInset,
	}
}

// LaidOutBooking is a bucketed segment annotated with its on-screen box.
// Top and Height are pixels; Left and Width are percentages of the grid
// width before Inset is applied.
type LaidOutBooking struct {
	PositionedBooking
	Top      float64 `json:"top"`
	Height   float64 `json:"height"`
	Left     float64 `json:"left"`
	Width    float64 `json:"width"`
	Inset    float64 `json:"inset"`
	Lane     int     `json:"lane"`
	Lanes    int     `json:"lanes"`
	Conflict bool    `json:"conflict"`
}

// Layout converts bucketed segments into pixel boxes.
//
// Top is StartMinute*ppm and Height is max(minutes*ppm, MinCardHeight).
// Degenerate input (inverted or zero-length segments, NaN or non-positive
// scale) never yields a negative or NaN coordinate.
func Layout(bucketed []PositionedBooking, opts LayoutOptions) []LaidOutBooking {
	out := make([]LaidOutBooking, 0, len(bucketed))
	if len(bucketed) == 0 {
		return out
	}
	opts = normalizeLayoutOptions(opts)
	columnWidth := 100 / float64(opts.Columns)
	minCardMinutes := opts.MinCardHeight / opts.PixelsPerMinute
	days := make([]int, 0, len(bucketed))

	for _, p := range bucketed {
		column := p.DayOffset
		if column < 0 {
			column = 0
		}
		if column >= opts.Columns {
			column = opts.Columns - 1
		}
		start := clampMinute(finite(p.StartMinute))
		top := floor0(start * opts.PixelsPerMinute)
		height := finite(p.Minutes() * opts.PixelsPerMinute)
		if height < opts.MinCardHeight {
			height = opts.MinCardHeight
		}
		out = append(out, LaidOutBooking{
			PositionedBooking: p,
			Top:               top,
			Height:            height,
			Left:              float64(column) * columnWidth,
			Width:             columnWidth,
			Inset:             opts.Inset,
			Lanes:             1,
		})
		days = append(days, p.DayOffset)
	}

	assignLanes(out, days, minCardMinutes)
	if opts.SplitOverlaps {
		for i := range out {
			if out[i].Lanes > 1 {
				laneWidth := out[i].Width / float64(out[i].Lanes)
				out[i].Left += float64(out[i].Lane) * laneWidth
				out[i].Width = laneWidth
			}
		}
	}
	markConflicts(out)
	return out
}

func normalizeLayoutOptions(opts LayoutOptions) LayoutOptions {
	if !(opts.PixelsPerMinute > 0) || math.IsInf(opts.PixelsPerMinute, 0) {
		opts.PixelsPerMinute = DefaultPixelsPerHour / 60
	}
	if !(opts.MinCardHeight >= 0) || math.IsInf(opts.MinCardHeight, 0) {
		opts.MinCardHeight = 0
	}
	if opts.Columns <= 0 {
		opts.Columns = 1
	}
	if !(opts.Inset >= 0) || math.IsInf(opts.Inset, 0) {
		opts.Inset = 0
	}
	return opts
}

// assignLanes groups visually overlapping cards of the same day into
// clusters and gives each card the first free lane of its cluster. Days are
// keyed by offset, not column, since month mode folds every day into one
// column. The visual end of a card accounts for the minimum height.
func assignLanes(cards []LaidOutBooking, days []int, minCardMinutes float64) {
	byDay := make(map[int][]int)
	for i, day := range days {
		byDay[day] = append(byDay[day], i)
	}
	for _, idx := range byDay {
		sort.SliceStable(idx, func(a, b int) bool {
			return cards[idx[a]].StartMinute < cards[idx[b]].StartMinute
		})
		visualEnd := func(i int) float64 {
			return math.Max(cards[i].EndMinute, cards[i].StartMinute+minCardMinutes)
		}

		var cluster []int
		var laneEnds []float64
		clusterEnd := math.Inf(-1)
		flush := func() {
			for _, i := range cluster {
				cards[i].Lanes = len(laneEnds)
			}
			cluster = cluster[:0]
			laneEnds = laneEnds[:0]
		}
		for _, i := range idx {
			start := cards[i].StartMinute
			if len(cluster) > 0 && start >= clusterEnd {
				flush()
				clusterEnd = math.Inf(-1)
			}
			lane := -1
			for l, end := range laneEnds {
				if end <= start {
					lane = l
					break
				}
			}
			if lane < 0 {
				lane = len(laneEnds)
				laneEnds = append(laneEnds, 0)
			}
			laneEnds[lane] = visualEnd(i)
			cards[i].Lane = lane
			cluster = append(cluster, i)
			clusterEnd = math.Max(clusterEnd, visualEnd(i))
		}
		flush()
	}
}

// markConflicts flags cards whose booking double-books a room with another
// booking in the same render pass.
func markConflicts(cards []LaidOutBooking) {
	seen := make(map[int64]struct{}, len(cards))
	bookings := make([]scheduler.Booking, 0, len(cards))
	for _, card := range cards {
		if _, ok := seen[card.Booking.ID]; ok {
			continue
		}
		seen[card.Booking.ID] = struct{}{}
		bookings = append(bookings, toSchedulerBooking(card.Booking))
	}

	conflicting := make(map[int64]bool)
	for _, candidate := range bookings {
		if scheduler.HasRoomConflict(scheduler.DetectConflicts(bookings, candidate)) {
			conflicting[candidate.ID] = true
		}
	}
	for i := range cards {
		cards[i].Conflict = conflicting[cards[i].Booking.ID]
	}
}

func toSchedulerBooking(b Booking) scheduler.Booking {
	attendees := make([]string, 0, len(b.Attendees))
	for _, a := range b.Attendees {
		attendees = append(attendees, a.ID)
	}
	return scheduler.Booking{
		ID:        b.ID,
		RoomID:    b.RoomID,
		Attendees: attendees,
		Start:     b.Start,
		End:       b.End,
		Cancelled: b.Status == StatusCancelled,
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func floor0(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return v
}
