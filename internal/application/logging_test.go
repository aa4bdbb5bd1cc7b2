package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/smartspace/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}
	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersRequestLogger(t *testing.T) {
	t.Parallel()

	var base, request bytes.Buffer
	baseLogger := slog.New(slog.NewTextHandler(&base, nil))
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&request, nil)))

	err := fmt.Errorf("%w: room 7 is taken", ErrConflict)
	serviceLogger(ctx, baseLogger, "BookingService", "CreateBooking", "room_id", int64(7)).
		Error("failed to create booking", "error_kind", ErrorKind(err))

	if base.Len() != 0 {
		t.Fatalf("base logger should be bypassed, got %q", base.String())
	}
	line := request.String()
	for _, want := range []string{"service=BookingService", "operation=CreateBooking", "room_id=7", "error_kind=conflict"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestServiceLoggerFallsBackToBase(t *testing.T) {
	t.Parallel()

	var base bytes.Buffer
	serviceLogger(context.Background(), slog.New(slog.NewTextHandler(&base, nil)), "DashboardService", "").
		Info("stats computed")

	line := base.String()
	if !strings.Contains(line, "service=DashboardService") || strings.Contains(line, "operation=") {
		t.Fatalf("unexpected log line %q", line)
	}
}
