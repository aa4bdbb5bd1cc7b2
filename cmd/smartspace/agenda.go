package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/smartspace/internal/calendar"
	"github.com/example/smartspace/internal/persistence"
	"github.com/example/smartspace/internal/persistence/sqlite"
)

var (
	colorHeader   = color.New(color.Bold)
	colorMuted    = color.New(color.FgWhite, color.Faint)
	colorConflict = color.New(color.FgRed, color.Bold)

	statusColors = map[calendar.Status]*color.Color{
		calendar.StatusScheduled: color.New(color.FgYellow),
		calendar.StatusConfirmed: color.New(color.FgGreen),
		calendar.StatusOngoing:   color.New(color.FgCyan, color.Bold),
		calendar.StatusCompleted: color.New(color.FgWhite, color.Faint),
		calendar.StatusCancelled: color.New(color.FgRed, color.CrossedOut),
	}
)

func (a *App) agendaCmd() *cobra.Command {
	var (
		date    string
		mode    string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print the bookings of a day or week",
		Long: `Print the bookings of a day or a Monday-start week straight from the
database, one line per booking segment, coloured by derived status.
Bookings crossing midnight are listed on every day they touch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			if noColor {
				color.NoColor = true
			}

			m, ok := calendar.ParseMode(mode)
			if !ok || m == calendar.ModeMonth {
				return fmt.Errorf("invalid mode %q: use day or week", mode)
			}
			now := time.Now().In(cfg.Location)
			ref := now
			if date != "" {
				if ref, err = time.ParseInLocation("2006-01-02", date, cfg.Location); err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
			}

			pool, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closePool(pool, logger)

			window := calendar.ResolveWindow(ref, m)
			bookings, err := loadAgenda(cmd.Context(), sqlite.NewBookingRepository(pool), sqlite.NewRoomRepository(pool), window)
			if err != nil {
				return err
			}
			return renderAgenda(cmd.OutOrStdout(), bookings, m, window, now)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&mode, "mode", string(calendar.ModeDay), "day or week")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colour output")
	return cmd
}

// loadAgenda reads the bookings touching the window in the window's zone,
// with room names filled in.
func loadAgenda(ctx context.Context, bookings persistence.BookingRepository, rooms persistence.RoomRepository, window calendar.Window) ([]calendar.Booking, error) {
	models, err := bookings.ListBookings(ctx, persistence.BookingFilter{StartsFrom: &window.Start, EndsBy: &window.End})
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	roomModels, err := rooms.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	names := make(map[int64]string, len(roomModels))
	for _, r := range roomModels {
		names[r.ID] = r.Name
	}

	loc := window.Start.Location()
	out := make([]calendar.Booking, 0, len(models))
	for _, m := range models {
		out = append(out, calendar.Booking{
			ID:       m.ID,
			RoomID:   m.RoomID,
			RoomName: names[m.RoomID],
			UserID:   m.UserID,
			Purpose:  m.Purpose,
			Status:   calendar.Status(m.Status),
			Start:    m.Start.In(loc),
			End:      m.End.In(loc),
		})
	}
	return out, nil
}

// renderAgenda prints one block per day of the window. Overlapping
// bookings in the same room are flagged.
func renderAgenda(w io.Writer, bookings []calendar.Booking, mode calendar.Mode, window calendar.Window, now time.Time) error {
	cards := calendar.Layout(calendar.Bucket(bookings, window), calendar.DefaultLayoutOptions(mode))
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].DayOffset != cards[j].DayOffset {
			return cards[i].DayOffset < cards[j].DayOffset
		}
		return cards[i].StartMinute < cards[j].StartMinute
	})

	byDay := make(map[int][]calendar.LaidOutBooking, window.Days())
	for _, card := range cards {
		byDay[card.DayOffset] = append(byDay[card.DayOffset], card)
	}

	for day := 0; day < window.Days(); day++ {
		if day > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := colorHeader.Fprintln(w, window.DayStart(day).Format("Monday, January 2 2006")); err != nil {
			return err
		}
		if len(byDay[day]) == 0 {
			if _, err := colorMuted.Fprintln(w, "  no bookings"); err != nil {
				return err
			}
			continue
		}
		for _, card := range byDay[day] {
			if err := agendaLine(w, card, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func agendaLine(w io.Writer, card calendar.LaidOutBooking, now time.Time) error {
	status := card.Booking.DerivedStatus(now)
	paint, ok := statusColors[status]
	if !ok {
		paint = colorMuted
	}

	span := clockMinute(card.StartMinute) + "-" + clockMinute(card.EndMinute)
	if card.ContinuesBefore {
		span = "<" + span
	}
	if card.ContinuesAfter {
		span += ">"
	}
	line := fmt.Sprintf("  %-13s %s %s", span, paint.Sprintf("%-10s", status), card.Booking.Purpose)
	if card.Booking.RoomName != "" {
		line += " (" + card.Booking.RoomName + ")"
	}
	if card.Conflict {
		line += " " + colorConflict.Sprint("overlap")
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func clockMinute(minute float64) string {
	m := int(minute)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
