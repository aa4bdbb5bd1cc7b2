package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/smartspace/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sessionColumns = `id, user_id, token, fingerprint, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session token for a user.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.UserID == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	normalized, err := normalizeSession(session)
	if err != nil {
		return persistence.Session{}, err
	}

	now := time.Now().UTC()
	normalized.CreatedAt = now
	normalized.UpdatedAt = now

	_, err = r.helper.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		normalized.ID,
		normalized.UserID,
		normalized.Token,
		normalized.Fingerprint,
		formatTime(normalized.ExpiresAt),
		nullTime(normalized.RevokedAt),
		formatTime(normalized.CreatedAt),
		formatTime(normalized.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return normalized, nil
}

// GetSession retrieves a session by its token value.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	normalizedToken := strings.TrimSpace(token)
	if normalizedToken == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	session, err := scanSession(r.helper.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, normalizedToken))
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// UpdateSession updates the mutable fields of an existing session. The owner
// and creation time are preserved.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	normalized, err := normalizeSession(session)
	if err != nil {
		return persistence.Session{}, err
	}

	var updated persistence.Session
	err = r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := scanSession(r.helper.QueryRowTx(ctx, tx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, normalized.ID))
		if err != nil {
			return r.mapper.MapError(err)
		}
		normalized.UserID = current.UserID
		normalized.CreatedAt = current.CreatedAt
		normalized.UpdatedAt = time.Now().UTC()

		result, err := r.helper.ExecTx(ctx, tx, `
			UPDATE sessions
			SET token = ?, fingerprint = ?, expires_at = ?, revoked_at = ?, updated_at = ?
			WHERE id = ?`,
			normalized.Token,
			normalized.Fingerprint,
			formatTime(normalized.ExpiresAt),
			nullTime(normalized.RevokedAt),
			formatTime(normalized.UpdatedAt),
			normalized.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		updated = normalized
		return requireAffected(result)
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return updated, nil
}

// RevokeSession marks a session as revoked based on its token value.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	normalizedToken := strings.TrimSpace(token)
	if normalizedToken == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	at := revokedAt.UTC()

	result, err := r.helper.Exec(ctx, `
		UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE token = ?`,
		formatTime(at),
		formatTime(at),
		normalizedToken,
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, normalizedToken)
}

// DeleteExpiredSessions removes sessions that expired on or before reference.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	return r.mapper.MapError(err)
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var expiresAt, createdAt, updatedAt string
	var revokedAt sql.NullString
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.Fingerprint,
		&expiresAt,
		&revokedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Session{}, err
	}

	var err error
	if revokedAt.Valid {
		at, err := parseTime("revoked_at", revokedAt.String)
		if err != nil {
			return persistence.Session{}, err
		}
		session.RevokedAt = &at
	}
	if session.ExpiresAt, err = parseTime("expires_at", expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

// normalizeSession trims identifiers and converts timestamps to UTC.
func normalizeSession(session persistence.Session) (persistence.Session, error) {
	if session.ID == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	session.Token = strings.TrimSpace(session.Token)
	if session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	session.Fingerprint = strings.TrimSpace(session.Fingerprint)
	session.ExpiresAt = session.ExpiresAt.UTC()
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC()
		session.RevokedAt = &revoked
	}
	return session, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
