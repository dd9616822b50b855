package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/db"
	"github.com/lherron/itsmig/internal/store"
)

var initAdmCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the target database",
	Long: `Initialize creates the SQLite database, runs migrations, creates the
attachment directory and optionally seeds the enumeration catalog and users
from a YAML file (see 'itsmigadm seed').`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Options{NeedsDB: false}, runInitAdm),
}

var initAdmCatalog string

func init() {
	rootAdmCmd.AddCommand(initAdmCmd)

	initAdmCmd.Flags().StringVar(&initAdmCatalog, "catalog", "", "Catalog YAML to seed after initializing")
}

func runInitAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	cfg := app.Config
	out := cmd.OutOrStdout()

	// Check if database already exists
	dbExists := false
	if _, err := os.Stat(cfg.DBPath); err == nil {
		dbExists = true
	}

	// Open database (creates file if it doesn't exist)
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	if err := os.MkdirAll(cfg.AttachDir, 0755); err != nil {
		return exitError(1, fmt.Errorf("failed to create attachments directory: %w", err))
	}

	if dbExists {
		fmt.Fprintf(out, "✓ Database already initialized at %s\n", cfg.DBPath)
		fmt.Fprintf(out, "✓ Migrations applied\n")
	} else {
		fmt.Fprintf(out, "✓ Initialized new database at %s\n", cfg.DBPath)
		fmt.Fprintf(out, "✓ Created attachments directory at %s\n", cfg.AttachDir)
	}

	if initAdmCatalog != "" {
		cat, err := store.LoadCatalog(initAdmCatalog)
		if err != nil {
			return exitError(1, err)
		}
		res, err := store.New(database, cfg.AttachDir).Seed(cmd.Context(), cat)
		if err != nil {
			return exitError(1, fmt.Errorf("failed to seed catalog: %w", err))
		}
		printSeedResult(cmd, res)
	}

	return nil
}
