package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/smartspace/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrConflict, "conflict"},
	{ErrAccountDisabled, "account_disabled"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrSessionExpired, "session_expired"},
	{ErrSessionRevoked, "session_revoked"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
// A booking rejected for a room double-booking logs as "conflict".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}
