package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/smartspace/internal/persistence"
)

func TestUserRepository_CreateUser(t *testing.T) {
	repo := NewUserRepository(setupTestPool(t))
	ctx := context.Background()

	user := persistence.User{
		ID:           "user1",
		Email:        "  Test@Example.com ",
		DisplayName:  "Test User",
		PasswordHash: "hashed_password",
		IsAdmin:      true,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if retrieved.Email != "test@example.com" {
		t.Errorf("Expected normalized email 'test@example.com', got '%s'", retrieved.Email)
	}
	if retrieved.DisplayName != "Test User" || !retrieved.IsAdmin || retrieved.Disabled {
		t.Errorf("unexpected user %+v", retrieved)
	}
	if retrieved.PasswordHash != "hashed_password" {
		t.Errorf("Expected password hash to round-trip, got %q", retrieved.PasswordHash)
	}
}

func TestUserRepository_CreateUser_Duplicate(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewUserRepository(pool)
	seedUser(t, pool, "user1", "test@example.com")

	err := repo.CreateUser(context.Background(), persistence.User{
		ID:           "user2",
		Email:        "TEST@example.com",
		DisplayName:  "Other",
		PasswordHash: "x",
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_CreateUser_RequiresPasswordHash(t *testing.T) {
	repo := NewUserRepository(setupTestPool(t))

	err := repo.CreateUser(context.Background(), persistence.User{ID: "user1", Email: "a@example.com"})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("Expected ErrConstraintViolation, got %v", err)
	}
}

func TestUserRepository_GetUserByEmail(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewUserRepository(pool)
	seedUser(t, pool, "user1", "alice@example.com")

	user, err := repo.GetUserByEmail(context.Background(), "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if user.ID != "user1" {
		t.Errorf("Expected user1, got %s", user.ID)
	}

	if _, err := repo.GetUserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetUserByEmail(context.Background(), "   "); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for blank email, got %v", err)
	}
}

func TestUserRepository_UpdateUser(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	user := seedUser(t, pool, "user1", "alice@example.com")

	user.DisplayName = "Alice"
	user.Disabled = true
	if err := repo.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	retrieved, err := repo.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if retrieved.DisplayName != "Alice" || !retrieved.Disabled {
		t.Errorf("unexpected user after update: %+v", retrieved)
	}

	user.ID = "missing"
	if err := repo.UpdateUser(ctx, user); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_ListUsers(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	base := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"user-b", "user-a", "user-c"} {
		err := repo.CreateUser(ctx, persistence.User{
			ID:           id,
			Email:        id + "@example.com",
			DisplayName:  id,
			PasswordHash: "hash",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", id, err)
		}
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	want := []string{"user-b", "user-a", "user-c"}
	if len(users) != len(want) {
		t.Fatalf("Expected %d users, got %d", len(want), len(users))
	}
	for i, user := range users {
		if user.ID != want[i] {
			t.Errorf("users[%d] = %s, want %s", i, user.ID, want[i])
		}
	}
}

func TestUserRepository_DeleteUser(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	seedUser(t, pool, "user1", "alice@example.com")

	if err := repo.DeleteUser(ctx, "user1"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := repo.GetUser(ctx, "user1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteUser(ctx, "user1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}
}
