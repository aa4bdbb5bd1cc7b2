package sqlite

import (
	"context"
	"errors"
	"testing"
)

func TestMigrator_IsIdempotent(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	migrator := NewMigrator(pool, nil)

	applied, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no pending migrations, applied %d", applied)
	}

	statuses, err := migrator.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(statuses))
	}
	for _, st := range statuses {
		if st.AppliedAt == nil {
			t.Errorf("migration %s not applied", st.Version)
		}
	}
	if statuses[0].Version != "001" || statuses[0].Description != "users, rooms and sessions" {
		t.Errorf("unexpected first migration %+v", statuses[0].Migration)
	}
}

func TestMigrator_DetectsEditedMigration(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	if _, err := pool.DB().ExecContext(ctx, `UPDATE schema_migrations SET checksum = 'edited' WHERE version = '002'`); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	_, err := NewMigrator(pool, nil).Status(ctx)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	if got := describe("-- Description: add things\nCREATE TABLE x (id INTEGER);", "003_x.sql"); got != "add things" {
		t.Errorf("describe = %q", got)
	}
	if got := describe("CREATE TABLE x (id INTEGER);", "003_x.sql"); got != "003_x" {
		t.Errorf("describe fallback = %q", got)
	}
}
