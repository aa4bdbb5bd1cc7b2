package persistence

import "time"

// User represents an employee account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable meeting room.
type Room struct {
	ID         int64
	Name       string
	Location   string
	Capacity   int
	Facilities *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Booking represents a room reservation. Start and End are stored in UTC.
type Booking struct {
	ID          int64
	RoomID      int64
	UserID      string
	Purpose     string
	Status      string
	Start       time.Time
	End         time.Time
	AttendeeIDs []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authentication session persisted for a user.
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
