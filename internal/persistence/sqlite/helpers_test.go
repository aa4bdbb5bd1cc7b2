package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/smartspace/internal/persistence"
)

func setupTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "smartspace.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if _, err := NewMigrator(pool, nil).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return pool
}

func seedUser(t *testing.T, pool *ConnectionPool, id, email string) persistence.User {
	t.Helper()

	user := persistence.User{
		ID:           id,
		Email:        email,
		DisplayName:  id,
		PasswordHash: "hash",
	}
	if err := NewUserRepository(pool).CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", id, err)
	}
	return user
}

func seedRoom(t *testing.T, pool *ConnectionPool, name string) int64 {
	t.Helper()

	id, err := NewRoomRepository(pool).CreateRoom(context.Background(), persistence.Room{Name: name, Capacity: 6})
	if err != nil {
		t.Fatalf("CreateRoom(%s) failed: %v", name, err)
	}
	return id
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.June, 10, hour, minute, 0, 0, time.UTC)
}
