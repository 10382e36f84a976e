package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/leadscore/internal/infrastructure/database/postgres"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

// Migration entry points, replaceable in tests.
var (
	migrateUp     = postgres.RunMigrations
	migrateDown   = postgres.RollbackMigration
	migrateStatus = postgres.MigrationStatus
)

func newMigrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the subscription directory schema",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migration source URL (default: database.migration_path)")

	source := func(cliCtx *CLIContext) string {
		if path != "" {
			return path
		}
		return cliCtx.Config.Database.MigrationPath
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			src := source(cliCtx)
			cliCtx.Logger.Info("applying migrations", logging.String("source", src))
			if err := migrateUp(cliCtx.Config.Database.DSN(), src); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			src := source(cliCtx)
			cliCtx.Logger.Info("rolling back migrations", logging.String("source", src), logging.Int("steps", steps))
			if err := migrateDown(cliCtx.Config.Database.DSN(), src, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := migrateStatus(cliCtx.Config.Database.DSN(), source(cliCtx))
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd, map[string]interface{}{"version": version, "dirty": dirty})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty:   %t\n", version, dirty)
			return nil
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

//Personal.AI order the ending
