package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/db"
	"github.com/lherron/itsmig/internal/render"
)

var migrateAdmCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the target database",
	Long: `Migrate applies the SQL migrations embedded in the binary that the target
database has not recorded in schema_migrations yet. Running it again is a
no-op.

--status lists every migration with its state instead of applying anything.
--dry-run lists only the ones that would be applied.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Options{NeedsDB: false}, runMigrateAdm),
}

var (
	migrateDryRun bool
	migrateStatus bool
	migrateFormat string
)

func init() {
	rootAdmCmd.AddCommand(migrateAdmCmd)

	migrateAdmCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Show which migrations would be applied without running them")
	migrateAdmCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show current migration status")
	migrateAdmCmd.Flags().StringVar(&migrateFormat, "format", "table", "Status output format: table, json, yaml or tsv")
	migrateAdmCmd.MarkFlagsMutuallyExclusive("dry-run", "status")
}

func runMigrateAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	database, err := db.Open(app.Config.DBPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	out := cmd.OutOrStdout()

	if migrateStatus || migrateDryRun {
		format, err := render.ParseFormat(migrateFormat)
		if err != nil {
			return exitError(2, err)
		}
		applied, pending, err := database.MigrationStatus()
		if err != nil {
			return exitError(1, fmt.Errorf("failed to get migration status: %w", err))
		}
		if migrateDryRun {
			applied = nil
			if len(pending) == 0 {
				fmt.Fprintln(out, "No pending migrations. Database is up to date.")
				return nil
			}
		}

		rows := make([][]string, 0, len(applied)+len(pending))
		for _, v := range applied {
			rows = append(rows, []string{v, "applied"})
		}
		for _, v := range pending {
			rows = append(rows, []string{v, "pending"})
		}
		return render.NewRenderer(out, format).Table([]string{"VERSION", "STATE"}, rows)
	}

	applied, err := database.MigrateWithInfo()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}
	if len(applied) == 0 {
		fmt.Fprintln(out, "Database is up to date. No migrations to apply.")
		return nil
	}
	for _, m := range applied {
		fmt.Fprintf(out, "✓ Applied migration: %s\n", m)
	}
	fmt.Fprintf(out, "\nApplied %d migration(s).\n", len(applied))
	return nil
}
