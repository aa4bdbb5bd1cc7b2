package application

import (
	"time"

	"github.com/example/smartspace/internal/calendar"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	RoomID  int64
	Purpose string
	// Status defaults to Scheduled on create and to the stored status on update.
	Status      calendar.Status
	Start       time.Time
	End         time.Time
	AttendeeIDs []string
}

// Attendee is a booking participant resolved against the user directory.
type Attendee struct {
	ID    string
	Name  string
	Email string
}

// Booking represents a persisted room reservation.
type Booking struct {
	ID        int64
	RoomID    int64
	RoomName  string
	UserID    string
	Purpose   string
	Status    calendar.Status
	Start     time.Time
	End       time.Time
	Attendees []Attendee
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttendeeIDs returns the attendee user IDs in stored order.
func (b Booking) AttendeeIDs() []string {
	ids := make([]string, 0, len(b.Attendees))
	for _, a := range b.Attendees {
		ids = append(ids, a.ID)
	}
	return ids
}

// ConflictWarning describes an overlapping booking that should be surfaced to callers.
type ConflictWarning struct {
	BookingID  int64
	Type       string
	AttendeeID string
	RoomID     int64
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// UpdateBookingParams wraps the data required to reschedule or edit a booking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID int64
	Input     BookingInput
}

// ListBookingsParams narrows the booking listing. Start and End bound the
// range inclusively; a nil bound is open.
type ListBookingsParams struct {
	Principal Principal
	Start     *time.Time
	End       *time.Time
	Statuses  []calendar.Status
	RoomID    *int64
	// Mine restricts the listing to bookings owned or attended by the principal.
	Mine bool
}

// BookingList is the result of a booking listing.
type BookingList struct {
	Bookings []Booking
	Warnings []ConflictWarning
}

// DashboardStats summarizes booking activity for one day.
type DashboardStats struct {
	Date       time.Time
	Total      int
	ByStatus   map[calendar.Status]int
	RoomsInUse int
	Upcoming   []Booking
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name       string
	Location   string
	Capacity   int
	Facilities *string
}

// Room represents a catalog entry for a physical meeting room.
type Room struct {
	ID         int64
	Name       string
	Location   string
	Capacity   int
	Facilities *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    int64
	Input     RoomInput
}

// UserInput captures caller provided user attributes. Password is only
// required on create; an empty password on update keeps the stored hash.
type UserInput struct {
	Email       string
	DisplayName string
	IsAdmin     bool
	Disabled    bool
	Password    string
}

// User represents an employee account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult is the replacement session and its owner.
type RefreshSessionResult struct {
	Session Session
	User    User
}
