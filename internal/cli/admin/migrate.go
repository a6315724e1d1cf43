package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/jeeinsight/internal/config"
	"github.com/cloo-solutions/jeeinsight/internal/database"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
)

// MigrateCmd manages the database schema.
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.PersistentFlags().String("source", "", "Migration source URL (overrides JEE_MIGRATIONS_PATH)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			defer m.Close()
			return m.Up()
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			defer m.Close()
			return m.Down(steps)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			version, dirty, ok, err := m.Version()
			if err != nil {
				return err
			}
			switch {
			case !ok:
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
			case dirty:
				fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty)\n", version)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), version)
			}
			return nil
		},
	})

	return cmd
}

func newMigrator(cmd *cobra.Command) (*database.Migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasDatabase() {
		return nil, fmt.Errorf("JEE_DATABASE_URL not set")
	}

	source := cfg.MigrationsPath
	if flagSource, _ := cmd.Flags().GetString("source"); flagSource != "" {
		source = flagSource
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	return database.NewMigrator(cfg.DatabaseURL, source, logger)
}
