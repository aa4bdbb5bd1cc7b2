package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/smartspace/internal/persistence"
)

func TestRoomRepository_CreateRoom(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	facilities := "projector, whiteboard"
	id, err := repo.CreateRoom(ctx, persistence.Room{
		Name:       "Conference Room A",
		Capacity:   10,
		Location:   "Building 1, Floor 2",
		Facilities: &facilities,
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected generated id, got %d", id)
	}

	retrieved, err := repo.GetRoom(ctx, id)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if retrieved.Name != "Conference Room A" {
		t.Errorf("Expected name 'Conference Room A', got '%s'", retrieved.Name)
	}
	if retrieved.Capacity != 10 {
		t.Errorf("Expected capacity 10, got %d", retrieved.Capacity)
	}
	if retrieved.Facilities == nil || *retrieved.Facilities != facilities {
		t.Errorf("Expected facilities %q, got %v", facilities, retrieved.Facilities)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}
}

func TestRoomRepository_CreateRoom_InvalidCapacity(t *testing.T) {
	repo := NewRoomRepository(setupTestPool(t))

	_, err := repo.CreateRoom(context.Background(), persistence.Room{Name: "Broom cupboard", Capacity: 0})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("Expected ErrConstraintViolation, got %v", err)
	}
}

func TestRoomRepository_CreateRoom_DuplicateName(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRoomRepository(pool)
	seedRoom(t, pool, "Orion")

	_, err := repo.CreateRoom(context.Background(), persistence.Room{Name: "Orion", Capacity: 4})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
}

func TestRoomRepository_UpdateRoom(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()
	id := seedRoom(t, pool, "Conference Room A")

	err := repo.UpdateRoom(ctx, persistence.Room{ID: id, Name: "Updated Conference Room", Capacity: 15, Location: "Building 2"})
	if err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}

	retrieved, err := repo.GetRoom(ctx, id)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if retrieved.Name != "Updated Conference Room" || retrieved.Capacity != 15 {
		t.Errorf("unexpected room after update: %+v", retrieved)
	}
	if retrieved.Facilities != nil {
		t.Errorf("Expected facilities to be cleared, got %q", *retrieved.Facilities)
	}

	err = repo.UpdateRoom(ctx, persistence.Room{ID: id + 100, Name: "Ghost", Capacity: 1})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing room, got %v", err)
	}
}

func TestRoomRepository_ListRooms(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRoomRepository(pool)
	seedRoom(t, pool, "Vega")
	seedRoom(t, pool, "Altair")
	seedRoom(t, pool, "Deneb")

	rooms, err := repo.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("Expected 3 rooms, got %d", len(rooms))
	}
	want := []string{"Altair", "Deneb", "Vega"}
	for i, room := range rooms {
		if room.Name != want[i] {
			t.Errorf("rooms[%d] = %s, want %s", i, room.Name, want[i])
		}
	}
}

func TestRoomRepository_DeleteRoom(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()
	id := seedRoom(t, pool, "Conference Room A")

	if err := repo.DeleteRoom(ctx, id); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := repo.GetRoom(ctx, id); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteRoom(ctx, id); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}
}
