package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/smartspace/internal/calendar"
)

// upcomingLimit caps the number of upcoming bookings in the dashboard.
const upcomingLimit = 5

// DashboardService summarizes booking activity for administrators.
type DashboardService struct {
	bookings BookingRepository
	now      func() time.Time
	loc      *time.Location
	logger   *slog.Logger
}

// NewDashboardService wires dependencies for the dashboard. Days are
// computed in loc; a nil loc uses time.Local.
func NewDashboardService(bookings BookingRepository, now func() time.Time, loc *time.Location) *DashboardService {
	return NewDashboardServiceWithLogger(bookings, now, loc, nil)
}

// NewDashboardServiceWithLogger wires dependencies with a specified logger.
func NewDashboardServiceWithLogger(bookings BookingRepository, now func() time.Time, loc *time.Location, logger *slog.Logger) *DashboardService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{bookings: bookings, now: now, loc: loc, logger: defaultLogger(logger)}
}

// TodayStats counts today's bookings by derived status and lists the next
// bookings that have not started yet.
func (s *DashboardService) TodayStats(ctx context.Context, principal Principal) (stats DashboardStats, err error) {
	if s == nil {
		err = fmt.Errorf("DashboardService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "DashboardService", "TodayStats", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute dashboard stats", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("total", stats.Total).DebugContext(ctx, "dashboard stats computed")
	}()

	now := s.now().In(s.loc)
	day := calendar.ResolveWindow(now, calendar.ModeDay)

	var bookings []Booking
	if bookings, err = s.bookings.ListBookings(ctx, BookingRepositoryFilter{StartsFrom: &day.Start, EndsBy: &day.End}); err != nil {
		if !isNotFoundError(err) {
			err = mapBookingRepoError(err)
			return
		}
		err = nil
	}

	stats = DashboardStats{
		Date:     day.Start,
		ByStatus: make(map[calendar.Status]int),
	}
	rooms := make(map[int64]struct{})
	for _, b := range bookings {
		status := calendar.DeriveStatus(b.Status, b.Start, b.End, now)
		stats.Total++
		stats.ByStatus[status]++
		if status == calendar.StatusOngoing {
			rooms[b.RoomID] = struct{}{}
		}
		if b.Start.After(now) && status != calendar.StatusCancelled {
			stats.Upcoming = append(stats.Upcoming, b)
		}
	}
	stats.RoomsInUse = len(rooms)

	sort.SliceStable(stats.Upcoming, func(i, j int) bool {
		if stats.Upcoming[i].Start.Equal(stats.Upcoming[j].Start) {
			return stats.Upcoming[i].ID < stats.Upcoming[j].ID
		}
		return stats.Upcoming[i].Start.Before(stats.Upcoming[j].Start)
	})
	if len(stats.Upcoming) > upcomingLimit {
		stats.Upcoming = stats.Upcoming[:upcomingLimit]
	}
	return
}
