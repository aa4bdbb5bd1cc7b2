package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/smartspace/internal/persistence/sqlite"
)

func (a *App) migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			pool, err := sqlite.Open(sqlite.DefaultConfig(cfg.SQLiteDSN))
			if err != nil {
				return fmt.Errorf("opening storage: %w", err)
			}
			defer closePool(pool, logger)
			migrator := sqlite.NewMigrator(pool, logger)

			if status {
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return fmt.Errorf("reading migration status: %w", err)
				}
				for _, s := range statuses {
					state := "pending"
					if s.AppliedAt != nil {
						state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(out, "%s  %-28s  %s\n", s.Version, state, s.Description)
				}
				return nil
			}

			applied, err := migrator.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("applying migrations: %w", err)
			}
			fmt.Fprintf(out, "applied %d migration(s)\n", applied)
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "list migrations without applying them")
	return cmd
}
