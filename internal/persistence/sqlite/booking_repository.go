package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/example/smartspace/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  RetryConfig
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  DefaultRetryConfig(),
	}
}

const bookingColumns = `id, room_id, user_id, purpose, status, start_time, end_time, created_at, updated_at`

// CreateBooking inserts a booking together with its attendees and returns
// the generated ID.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) (int64, error) {
	if err := validateBooking(booking); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}

	var id int64
	err := withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO bookings (room_id, user_id, purpose, status, start_time, end_time, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				booking.RoomID,
				booking.UserID,
				booking.Purpose,
				booking.Status,
				formatTime(booking.Start),
				formatTime(booking.End),
				formatTime(booking.CreatedAt),
				formatTime(booking.UpdatedAt),
			)
			if err != nil {
				return err
			}
			if id, err = result.LastInsertId(); err != nil {
				return err
			}
			return r.insertAttendees(ctx, tx, id, booking.AttendeeIDs)
		})
	})
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return id, nil
}

// UpdateBooking replaces the mutable fields and the attendee list of an
// existing booking. The owner is preserved.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if err := validateBooking(booking); err != nil {
		return err
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = time.Now().UTC()
	}

	err := withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, `
				UPDATE bookings
				SET room_id = ?, purpose = ?, status = ?, start_time = ?, end_time = ?, updated_at = ?
				WHERE id = ?`,
				booking.RoomID,
				booking.Purpose,
				booking.Status,
				formatTime(booking.Start),
				formatTime(booking.End),
				formatTime(booking.UpdatedAt),
				booking.ID,
			)
			if err != nil {
				return err
			}
			if err := requireAffected(result); err != nil {
				return err
			}
			if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM booking_attendees WHERE booking_id = ?`, booking.ID); err != nil {
				return err
			}
			return r.insertAttendees(ctx, tx, booking.ID, booking.AttendeeIDs)
		})
	})
	if isNotFound(err) {
		return persistence.ErrNotFound
	}
	return r.mapper.MapError(err)
}

// GetBooking retrieves a booking and its attendees.
func (r *BookingRepository) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	if id <= 0 {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	booking, err := scanBooking(r.helper.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	bookings := []persistence.Booking{booking}
	if err := r.loadAttendees(ctx, bookings); err != nil {
		return persistence.Booking{}, err
	}
	return bookings[0], nil
}

// ListBookings returns the bookings matching filter ordered by start time
// then ID. The time range is inclusive on both ends so that bookings
// touching the window boundary are returned.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.EndsBy != nil {
		clauses = append(clauses, "start_time <= ?")
		args = append(args, formatTime(*filter.EndsBy))
	}
	if filter.StartsFrom != nil {
		clauses = append(clauses, "end_time >= ?")
		args = append(args, formatTime(*filter.StartsFrom))
	}
	if filter.RoomID != nil {
		clauses = append(clauses, "room_id = ?")
		args = append(args, *filter.RoomID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "(user_id = ? OR id IN (SELECT booking_id FROM booking_attendees WHERE user_id = ?))")
		args = append(args, filter.UserID, filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	if err := r.loadAttendees(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// DeleteBooking removes a booking and its attendee rows.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}
	var result sql.Result
	err := withRetry(ctx, r.retry, func() error {
		var err error
		result, err = r.helper.Exec(ctx, `DELETE FROM bookings WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *BookingRepository) insertAttendees(ctx context.Context, tx *sql.Tx, bookingID int64, attendeeIDs []string) error {
	seen := make(map[string]struct{}, len(attendeeIDs))
	for _, userID := range attendeeIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		if _, err := r.helper.ExecTx(ctx, tx,
			`INSERT INTO booking_attendees (booking_id, user_id) VALUES (?, ?)`, bookingID, userID); err != nil {
			return err
		}
	}
	return nil
}

// loadAttendees fills AttendeeIDs for bookings in place with one query.
func (r *BookingRepository) loadAttendees(ctx context.Context, bookings []persistence.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	index := make(map[int64]int, len(bookings))
	args := make([]any, 0, len(bookings))
	for i, booking := range bookings {
		index[booking.ID] = i
		args = append(args, booking.ID)
	}

	rows, err := r.helper.Query(ctx,
		`SELECT booking_id, user_id FROM booking_attendees WHERE booking_id IN (`+placeholders(len(args))+`)`,
		args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookingID int64
		var userID string
		if err := rows.Scan(&bookingID, &userID); err != nil {
			return r.mapper.MapError(err)
		}
		if i, ok := index[bookingID]; ok {
			bookings[i].AttendeeIDs = append(bookings[i].AttendeeIDs, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return r.mapper.MapError(err)
	}
	for i := range bookings {
		sort.Strings(bookings[i].AttendeeIDs)
	}
	return nil
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var start, end, createdAt, updatedAt string
	if err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.UserID,
		&booking.Purpose,
		&booking.Status,
		&start,
		&end,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Booking{}, err
	}

	var err error
	if booking.Start, err = parseTime("start_time", start); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime("end_time", end); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

func validateBooking(booking persistence.Booking) error {
	if booking.RoomID <= 0 || booking.UserID == "" || strings.TrimSpace(booking.Purpose) == "" {
		return persistence.ErrConstraintViolation
	}
	if !booking.End.After(booking.Start) {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
