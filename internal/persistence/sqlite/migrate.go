package sqlite

import (
	"bufio"
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrChecksumMismatch is returned when an applied migration file was edited.
var ErrChecksumMismatch = errors.New("sqlite: migration checksum mismatch")

// Migration is one versioned schema change.
type Migration struct {
	Version     string
	Description string
	Checksum    string
	SQL         string
}

// MigrationStatus describes a migration and whether it has been applied.
type MigrationStatus struct {
	Migration
	AppliedAt *time.Time
}

// Migrator applies the embedded schema migrations in version order and
// records them in schema_migrations.
type Migrator struct {
	pool   *ConnectionPool
	files  fs.FS
	logger *slog.Logger
}

// NewMigrator returns a migrator for the embedded migrations.
func NewMigrator(pool *ConnectionPool, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{pool: pool, files: migrationFiles, logger: logger}
}

// Migrate applies every pending migration. Each migration runs in its own
// transaction together with its bookkeeping row.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	statuses, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, st := range statuses {
		if st.AppliedAt != nil {
			continue
		}
		start := time.Now()
		logger := m.logger.With("version", st.Version, "description", st.Description)
		logger.InfoContext(ctx, "applying migration")

		err := m.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, st.SQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, description, checksum, applied_at, execution_time_ms) VALUES (?, ?, ?, ?, ?)`,
				st.Version, st.Description, st.Checksum, formatTime(time.Now()), time.Since(start).Milliseconds())
			return err
		})
		if err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return applied, fmt.Errorf("migration %s failed: %w", st.Version, err)
		}
		logger.InfoContext(ctx, "migration applied", "duration", time.Since(start))
		applied++
	}
	return applied, nil
}

// Status lists the embedded migrations with their applied timestamps.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.initVersionTable(ctx); err != nil {
		return nil, err
	}
	migrations, err := loadMigrations(m.files)
	if err != nil {
		return nil, err
	}

	rows, err := m.pool.DB().QueryContext(ctx, `SELECT version, checksum, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	type appliedRow struct {
		checksum  string
		appliedAt time.Time
	}
	applied := make(map[string]appliedRow)
	for rows.Next() {
		var version, checksum, appliedAt string
		if err := rows.Scan(&version, &checksum, &appliedAt); err != nil {
			return nil, err
		}
		at, err := parseTime("applied_at", appliedAt)
		if err != nil {
			return nil, err
		}
		applied[version] = appliedRow{checksum: checksum, appliedAt: at}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		st := MigrationStatus{Migration: mig}
		if row, ok := applied[mig.Version]; ok {
			if row.checksum != mig.Checksum {
				return nil, fmt.Errorf("%w: version %s", ErrChecksumMismatch, mig.Version)
			}
			at := row.appliedAt
			st.AppliedAt = &at
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (m *Migrator) initVersionTable(ctx context.Context) error {
	_, err := m.pool.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			execution_time_ms INTEGER NOT NULL DEFAULT 0
		)`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema_migrations: %w", err)
	}
	return nil
}

// loadMigrations reads NNN_name.sql files ordered by their numeric prefix.
func loadMigrations(files fs.FS) ([]Migration, error) {
	names, err := fs.Glob(files, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	seen := make(map[string]string)
	for _, name := range names {
		base := path.Base(name)
		version, _, ok := strings.Cut(base, "_")
		if !ok || version == "" || strings.Trim(version, "0123456789") != "" {
			return nil, fmt.Errorf("invalid migration file name %q", base)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %s (%s, %s)", version, other, base)
		}
		seen[version] = base

		content, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:     version,
			Description: describe(string(content), base),
			Checksum:    hex.EncodeToString(sum[:]),
			SQL:         string(content),
		})
	}
	return migrations, nil
}

// describe returns the "-- Description:" header of a migration, falling
// back to the file name.
func describe(content, fallback string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "--") {
			break
		}
		if desc, ok := strings.CutPrefix(strings.TrimSpace(strings.TrimPrefix(line, "--")), "Description:"); ok {
			return strings.TrimSpace(desc)
		}
	}
	return strings.TrimSuffix(fallback, ".sql")
}
