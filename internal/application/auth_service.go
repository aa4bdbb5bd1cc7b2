package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL applies when the service is built without a lifetime.
const DefaultSessionTTL = 24 * time.Hour

// CredentialStore resolves login emails and session owners.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionRepository stores issued sessions. Rotated and logged-out sessions
// stay readable so a replayed token reports ErrSessionRevoked.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService owns the session lifecycle behind /auth/login, /auth/refresh,
// /auth/logout and the session guard.
//
// A refresh rotates: the presented session is revoked and a new one is
// issued for the same user, so each token is usable for one refresh only.
// Every step rechecks that the owning account is still enabled.
type AuthService struct {
	credentials CredentialStore
	sessions    SessionRepository
	verify      PasswordVerifier
	newToken    func() string
	now         func() time.Time
	ttl         time.Duration
	logger      *slog.Logger
}

func NewAuthService(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, newToken func() string, now func() time.Time, ttl time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, verify, newToken, now, ttl, nil)
}

// NewAuthServiceWithLogger defaults to argon2id verification, random UUID
// tokens, the wall clock and DefaultSessionTTL.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, newToken func() string, now func() time.Time, ttl time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if newToken == nil {
		newToken = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		credentials: credentials,
		sessions:    sessions,
		verify:      verify,
		newToken:    newToken,
		now:         now,
		ttl:         ttl,
		logger:      defaultLogger(logger),
	}
}

func (s *AuthService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate checks an email and password and opens a session. Unknown
// emails and wrong passwords are indistinguishable; a disabled account is
// only reported after the password matched.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	logger := s.log(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "login rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session opened", "user_id", result.User.ID, "session_id", result.Session.ID)
	}()

	if email == "" || params.Password == "" {
		return result, ErrInvalidCredentials
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email)
	if isNotFoundError(err) {
		return result, ErrInvalidCredentials
	}
	if err != nil {
		return result, err
	}
	if s.verify(creds.PasswordHash, params.Password) != nil {
		return result, ErrInvalidCredentials
	}
	if creds.User.Disabled {
		return result, ErrAccountDisabled
	}

	var session Session
	session, err = s.open(ctx, creds.User.ID, params.Fingerprint)
	if err != nil {
		return result, err
	}
	return AuthenticateResult{User: creds.User, Session: session}, nil
}

// RefreshSession trades a live token for a new session. The old token is
// revoked before the new one is issued.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	logger := s.log(ctx, "RefreshSession")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "refresh rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session rotated", "user_id", result.User.ID, "session_id", result.Session.ID)
	}()

	current, user, err := s.resolve(ctx, params.Token)
	if err != nil {
		return result, err
	}
	if _, err = s.sessions.RevokeSession(ctx, current.Token, s.now()); err != nil {
		if isNotFoundError(err) {
			err = ErrInvalidCredentials
		}
		return result, err
	}

	fingerprint := params.Fingerprint
	if strings.TrimSpace(fingerprint) == "" {
		fingerprint = current.Fingerprint
	}
	var next Session
	next, err = s.open(ctx, user.ID, fingerprint)
	if err != nil {
		return result, err
	}
	return RefreshSessionResult{Session: next, User: user}, nil
}

// RevokeSession ends the session behind token. Logging out twice succeeds.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	logger := s.log(ctx, "RevokeSession")

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidCredentials
	}
	session, err := s.sessions.GetSession(ctx, token)
	switch {
	case isNotFoundError(err):
		logger.WarnContext(ctx, "logout with unknown token")
		return ErrInvalidCredentials
	case err != nil:
		logger.ErrorContext(ctx, "failed to load session", "error", err, "error_kind", ErrorKind(err))
		return err
	case session.RevokedAt != nil:
		return nil
	}

	if _, err := s.sessions.RevokeSession(ctx, token, s.now()); err != nil {
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session closed", "user_id", session.UserID, "session_id", session.ID)
	return nil
}

// ValidateSession resolves token into the principal served by /auth/me and
// attached to guarded requests.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	_, user, err := s.resolve(ctx, token)
	if err != nil {
		s.log(ctx, "ValidateSession").DebugContext(ctx, "session rejected", "error", err, "error_kind", ErrorKind(err))
		return Principal{}, err
	}
	return Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

// resolve loads a live session and its enabled owner. Unknown tokens and
// vanished owners both read as ErrInvalidCredentials.
func (s *AuthService) resolve(ctx context.Context, token string) (Session, User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, User{}, ErrInvalidCredentials
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return Session{}, User{}, invalidIfMissing(err)
	}
	if session.RevokedAt != nil {
		return Session{}, User{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.After(s.now()) {
		return Session{}, User{}, ErrSessionExpired
	}

	user, err := s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		return Session{}, User{}, invalidIfMissing(err)
	}
	if user.Disabled {
		return Session{}, User{}, ErrAccountDisabled
	}
	return session, user, nil
}

// open prunes expired sessions and stores a fresh one for userID.
func (s *AuthService) open(ctx context.Context, userID, fingerprint string) (Session, error) {
	now := s.now()
	if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return Session{}, err
	}

	id := s.newToken()
	token := s.newToken()
	if id == "" || token == "" {
		return Session{}, errors.New("token generator returned an empty value")
	}
	return s.sessions.CreateSession(ctx, Session{
		ID:          id,
		UserID:      userID,
		Token:       token,
		Fingerprint: strings.TrimSpace(fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	})
}

func invalidIfMissing(err error) error {
	if isNotFoundError(err) {
		return ErrInvalidCredentials
	}
	return err
}
