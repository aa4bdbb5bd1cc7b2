package testfixtures

import (
	"context"
	"testing"

	"github.com/example/smartspace/internal/calendar"
	"github.com/example/smartspace/internal/persistence"
)

func TestSQLiteHarnessSeeds(t *testing.T) {
	h := NewSQLiteHarness(t)
	ctx := context.Background()

	owner := h.SeedUser(NewUserFixture())
	guest := h.SeedUser(NewUserFixture())
	room := h.SeedRoom(NewRoomFixture(WithRoomName("Orion"), WithRoomFacilities("projector")))
	if room.ID == 0 {
		t.Fatal("expected the store to assign a room id")
	}

	booking := h.SeedBooking(NewBookingFixture(room.ID, owner.ID,
		WithBookingStatus(calendar.StatusConfirmed),
		WithBookingTimes(At(10, 13, 0), At(10, 14, 0)),
		WithBookingAttendees(guest.ID),
	))

	stored, err := h.Bookings.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if stored.Status != string(calendar.StatusConfirmed) || !stored.Start.Equal(At(10, 13, 0)) {
		t.Fatalf("unexpected stored booking %+v", stored)
	}
	if len(stored.AttendeeIDs) != 1 || stored.AttendeeIDs[0] != guest.ID {
		t.Fatalf("unexpected attendees %v", stored.AttendeeIDs)
	}

	mine, err := h.Bookings.ListBookings(ctx, persistence.BookingFilter{UserID: guest.ID})
	if err != nil || len(mine) != 1 {
		t.Fatalf("attendee listing = %d, %v", len(mine), err)
	}
}
