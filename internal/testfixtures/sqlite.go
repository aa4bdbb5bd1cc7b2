package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/smartspace/internal/persistence"
	"github.com/example/smartspace/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated database in the test's temp dir with every
// repository opened on it.
type SQLiteHarness struct {
	Pool     *sqlite.ConnectionPool
	Users    persistence.UserRepository
	Rooms    persistence.RoomRepository
	Bookings persistence.BookingRepository
	Sessions persistence.SessionRepository

	tb testing.TB
}

// NewSQLiteHarness opens and migrates a fresh database. The pool is closed
// by tb's cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	pool, err := sqlite.Open(sqlite.DefaultConfig(filepath.Join(tb.TempDir(), "smartspace.db")))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = pool.Close() })

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := sqlite.NewMigrator(pool, quiet).Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	return &SQLiteHarness{
		Pool:     pool,
		Users:    sqlite.NewUserRepository(pool),
		Rooms:    sqlite.NewRoomRepository(pool),
		Bookings: sqlite.NewBookingRepository(pool),
		Sessions: sqlite.NewSessionRepository(pool),
		tb:       tb,
	}
}

// SeedUser stores the user and returns it.
func (h *SQLiteHarness) SeedUser(user UserFixture) UserFixture {
	h.tb.Helper()
	if err := h.Users.CreateUser(context.Background(), user.Persistence()); err != nil {
		h.tb.Fatalf("failed to seed user %s: %v", user.ID, err)
	}
	return user
}

// SeedRoom stores the room and returns it with its assigned ID.
func (h *SQLiteHarness) SeedRoom(room RoomFixture) RoomFixture {
	h.tb.Helper()
	id, err := h.Rooms.CreateRoom(context.Background(), room.Persistence())
	if err != nil {
		h.tb.Fatalf("failed to seed room %s: %v", room.Name, err)
	}
	room.ID = id
	return room
}

// SeedBooking stores the booking and returns it with its assigned ID.
func (h *SQLiteHarness) SeedBooking(booking BookingFixture) BookingFixture {
	h.tb.Helper()
	id, err := h.Bookings.CreateBooking(context.Background(), booking.Persistence())
	if err != nil {
		h.tb.Fatalf("failed to seed booking %q: %v", booking.Purpose, err)
	}
	booking.ID = id
	return booking
}
