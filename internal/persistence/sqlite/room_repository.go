package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/smartspace/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const roomColumns = `id, name, location, capacity, facilities, created_at, updated_at`

// CreateRoom inserts a new room and returns its generated ID.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) (int64, error) {
	if room.Capacity <= 0 {
		return 0, persistence.ErrConstraintViolation
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = room.CreatedAt
	}

	result, err := r.helper.Exec(ctx, `
		INSERT INTO rooms (name, location, capacity, facilities, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		room.Name,
		room.Location,
		room.Capacity,
		nullString(room.Facilities),
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.LastInsertId()
}

// UpdateRoom updates an existing room.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE rooms
		SET name = ?, location = ?, capacity = ?, facilities = ?, updated_at = ?
		WHERE id = ?`,
		room.Name,
		room.Location,
		room.Capacity,
		nullString(room.Facilities),
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetRoom retrieves a room by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id int64) (persistence.Room, error) {
	if id <= 0 {
		return persistence.Room{}, persistence.ErrNotFound
	}
	room, err := scanRoom(r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name then ID.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

// DeleteRoom removes a room together with its bookings.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var facilities sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Location,
		&room.Capacity,
		&facilities,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Room{}, err
	}
	if facilities.Valid {
		value := facilities.String
		room.Facilities = &value
	}

	var err error
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
