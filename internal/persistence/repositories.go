package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (int64, error)
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id int64) error
}

// BookingFilter narrows booking queries. A booking matches the time range
// when Start <= EndsBy and End >= StartsFrom.
type BookingFilter struct {
	StartsFrom *time.Time
	EndsBy     *time.Time
	Statuses   []string
	RoomID     *int64
	UserID     string
}

// BookingRepository stores bookings and their attendees.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (int64, error)
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id int64) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
