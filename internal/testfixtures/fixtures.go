// Package testfixtures builds deterministic users, rooms and bookings for
// service, storage and command tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/smartspace/internal/application"
	"github.com/example/smartspace/internal/calendar"
	"github.com/example/smartspace/internal/persistence"
)

var (
	userCounter uint64
	roomCounter uint64
)

// UserFixture is a user record that converts to the application and
// persistence shapes.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
}

type UserOption func(*UserFixture)

// NewUserFixture returns user-NNN with a matching email and display name.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: "hash-" + id,
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

func WithUserName(name string) UserOption {
	return func(f *UserFixture) { f.DisplayName = name }
}

func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

func WithUserAdmin() UserOption {
	return func(f *UserFixture) { f.IsAdmin = true }
}

func WithUserDisabled() UserOption {
	return func(f *UserFixture) { f.Disabled = true }
}

func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		Disabled:    f.Disabled,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// Principal returns the caller identity of the user.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin}
}

// RoomFixture is a meeting room. ID stays zero until the room is stored.
type RoomFixture struct {
	ID         int64
	Name       string
	Location   string
	Capacity   int
	Facilities *string
}

type RoomOption func(*RoomFixture)

// NewRoomFixture returns "Room NNN" on the third floor seating eight.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		Name:     fmt.Sprintf("Room %03d", idx),
		Location: "3F",
		Capacity: 8,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) { f.Name = name }
}

func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) { f.Capacity = capacity }
}

func WithRoomFacilities(facilities string) RoomOption {
	return func(f *RoomFixture) { f.Facilities = &facilities }
}

func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: cloneString(f.Facilities),
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
}

func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: cloneString(f.Facilities),
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
}

// Input returns the caller-provided fields of the room.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{Name: f.Name, Location: f.Location, Capacity: f.Capacity, Facilities: cloneString(f.Facilities)}
}

// BookingFixture is a one hour Scheduled booking starting at ReferenceTime
// unless overridden.
type BookingFixture struct {
	ID          int64
	RoomID      int64
	UserID      string
	Purpose     string
	Status      calendar.Status
	Start       time.Time
	End         time.Time
	AttendeeIDs []string
}

type BookingOption func(*BookingFixture)

// NewBookingFixture books roomID for userID.
func NewBookingFixture(roomID int64, userID string, opts ...BookingOption) BookingFixture {
	fixture := BookingFixture{
		RoomID:  roomID,
		UserID:  userID,
		Purpose: "Weekly sync",
		Status:  calendar.StatusScheduled,
		Start:   referenceTime,
		End:     referenceTime.Add(time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithBookingPurpose(purpose string) BookingOption {
	return func(f *BookingFixture) { f.Purpose = purpose }
}

func WithBookingStatus(status calendar.Status) BookingOption {
	return func(f *BookingFixture) { f.Status = status }
}

// WithBookingTimes sets both ends; inverted ranges are allowed so tests can
// store bad records.
func WithBookingTimes(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

func WithBookingAttendees(ids ...string) BookingOption {
	return func(f *BookingFixture) { f.AttendeeIDs = append([]string(nil), ids...) }
}

func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:          f.ID,
		RoomID:      f.RoomID,
		UserID:      f.UserID,
		Purpose:     f.Purpose,
		Status:      string(f.Status),
		Start:       f.Start,
		End:         f.End,
		AttendeeIDs: append([]string(nil), f.AttendeeIDs...),
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
}

func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		RoomID:      f.RoomID,
		Purpose:     f.Purpose,
		Status:      f.Status,
		Start:       f.Start,
		End:         f.End,
		AttendeeIDs: append([]string(nil), f.AttendeeIDs...),
	}
}

// Calendar returns the booking as the calendar engine sees it.
func (f BookingFixture) Calendar() calendar.Booking {
	attendees := make([]calendar.Attendee, 0, len(f.AttendeeIDs))
	for _, id := range f.AttendeeIDs {
		attendees = append(attendees, calendar.Attendee{ID: id})
	}
	return calendar.Booking{
		ID:        f.ID,
		RoomID:    f.RoomID,
		UserID:    f.UserID,
		Purpose:   f.Purpose,
		Status:    f.Status,
		Start:     f.Start,
		End:       f.End,
		Attendees: attendees,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
