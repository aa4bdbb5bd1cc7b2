package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/smartspace/internal/config"
	"github.com/example/smartspace/internal/logging"
	"github.com/example/smartspace/internal/persistence/sqlite"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
)

// App is the smartspace command tree.
type App struct {
	root       *cobra.Command
	configPath string
}

func NewApp() *App {
	a := &App{}
	a.root = &cobra.Command{
		Use:   "smartspace",
		Short: "Meeting room booking service and calendar",
		Long: `Smartspace books meeting rooms and shows the bookings as a day,
week or month calendar.

Configuration comes from an optional TOML file and SMARTSPACE_* environment
variables; SMARTSPACE_SESSION_SECRET is always required.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a TOML config file (default $SMARTSPACE_CONFIG)")

	a.root.AddCommand(a.serveCmd())
	a.root.AddCommand(a.migrateCmd())
	a.root.AddCommand(a.agendaCmd())
	a.root.AddCommand(a.versionCmd())
	return a
}

// Execute runs the command named by os.Args.
func (a *App) Execute(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

func (a *App) loadConfig() (config.Config, error) {
	if a.configPath != "" {
		return config.LoadFrom(a.configPath)
	}
	return config.Load()
}

// setup loads the configuration and builds the logger writing to the
// command's stderr.
func (a *App) setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, logging.New(cfg.LogFormat, cfg.LogLevel, cmd.ErrOrStderr()), nil
}

// openStore opens the configured database and applies pending migrations.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.ConnectionPool, error) {
	pool, err := sqlite.Open(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	applied, err := sqlite.NewMigrator(pool, logger).Migrate(ctx)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	if applied > 0 {
		logger.InfoContext(ctx, "schema migrations applied", "count", applied)
	}
	return pool, nil
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "smartspace %s (commit: %s)\n", Version, Commit)
		},
	}
}

func closePool(pool *sqlite.ConnectionPool, logger *slog.Logger) {
	if err := pool.Close(); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}
