package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/smartspace/internal/application"
	"github.com/example/smartspace/internal/backend"
	"github.com/example/smartspace/internal/calendar"
	"github.com/example/smartspace/internal/config"
	httptransport "github.com/example/smartspace/internal/http"
	"github.com/example/smartspace/internal/persistence/sqlite"
	"github.com/example/smartspace/internal/web"
)

func (a *App) serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking API and the calendar pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.HTTPPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closePool(pool, logger)

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
				Handler:           buildHandler(cfg, pool, time.Now, logger),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			return runServer(ctx, server, logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides http.port)")
	return cmd
}

// buildHandler wires storage, services, the JSON API and the calendar pages.
// The pages reach the API over HTTP at cfg.BackendBaseURL, which normally
// points back at this same process.
func buildHandler(cfg config.Config, pool *sqlite.ConnectionPool, now func() time.Time, logger *slog.Logger) http.Handler {
	users := newUserRepositoryAdapter(sqlite.NewUserRepository(pool))
	rooms := newRoomRepositoryAdapter(sqlite.NewRoomRepository(pool))
	bookings := newBookingRepositoryAdapter(sqlite.NewBookingRepository(pool))
	sessions := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))

	authService := application.NewAuthServiceWithLogger(users, sessions, application.VerifyPassword, newTokenGenerator(cfg.SessionSecret), now, cfg.SessionTTL, logger)
	userService := application.NewUserServiceWithLogger(users, uuid.NewString, application.HashPassword, now, logger)
	roomService := application.NewRoomServiceWithLogger(rooms, now, logger)
	bookingService := application.NewBookingServiceWithLogger(bookings, rooms, users, now, logger)
	dashboardService := application.NewDashboardServiceWithLogger(bookings, now, cfg.Location, logger)

	api := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, logger),
		Users:     httptransport.NewUserHandler(userService, logger),
		Rooms:     httptransport.NewRoomHandler(roomService, logger),
		Bookings:  httptransport.NewBookingHandler(bookingService, cfg.Location, logger),
		Dashboard: httptransport.NewDashboardHandler(dashboardService, cfg.Location, logger),
		Session:   httptransport.RequireSession(authService, logger),
	})

	client := backend.NewClientWithLogger(cfg.BackendBaseURL, &http.Client{Timeout: cfg.BackendTimeout}, cfg.Location, logger)
	pages := web.NewHandler(client, web.Config{
		Location: cfg.Location,
		Now:      now,
		Build: calendar.BuildOptions{
			PixelsPerHour: cfg.PixelsPerHour,
			MinCardHeight: cfg.MinCardHeight,
			ColumnInset:   cfg.ColumnInset,
			SplitOverlaps: cfg.SplitOverlaps,
		},
		PollInterval: cfg.DashboardPollInterval,
	}, logger).Routes()

	mux := http.NewServeMux()
	mux.Handle("/login", pages)
	mux.Handle("/calendar", pages)
	mux.Handle("/calendar/", pages)
	mux.Handle("/dashboard", pages)
	mux.Handle("/bookings/", pages)
	mux.Handle("/{$}", http.RedirectHandler("/calendar", http.StatusFound))
	mux.Handle("/", api)

	return httptransport.RequestLogger(logger)(mux)
}

// newTokenGenerator derives session tokens from random UUIDs keyed with the
// configured session secret.
func newTokenGenerator(secret string) func() string {
	key := []byte(secret)
	return func() string {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(uuid.NewString()))
		return hex.EncodeToString(mac.Sum(nil))
	}
}

func runServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("smartspace listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	logger.Info("smartspace stopped")
	return nil
}
