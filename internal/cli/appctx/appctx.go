// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup and opening the target
// database to reduce boilerplate across commands.
package appctx

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/config"
	"github.com/lherron/itsmig/internal/db"
	"github.com/lherron/itsmig/internal/logging"
	"github.com/lherron/itsmig/internal/store"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Log is the command logger
	Log *logrus.Logger

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Store is the target system over DB (nil if NeedsDB is false)
	Store *store.Store
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
		a.Store = nil
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the target database.
	NeedsDB bool
}

// DefaultOptions returns default options (DB required).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Flags override config
	if v := flagValue(cmd, "db"); v != "" {
		if app.Config.AttachDir == config.DefaultAttachDir(app.Config.DBPath) {
			app.Config.AttachDir = config.DefaultAttachDir(v)
		}
		app.Config.DBPath = v
	}
	if v := flagValue(cmd, "attach-dir"); v != "" {
		app.Config.AttachDir = v
	}
	if v := flagValue(cmd, "log-level"); v != "" {
		app.Config.LogLevel = v
	}
	if v := flagValue(cmd, "log-format"); v != "" {
		app.Config.LogFormat = v
	}
	if err := app.Config.Validate(); err != nil {
		return nil, err
	}

	app.Log = logging.New(app.Config.LogLevel, app.Config.LogFormat, cmd.ErrOrStderr())

	if opts.NeedsDB {
		database, err := db.Open(app.Config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Check for pending migrations
		_, pending, err := database.MigrationStatus()
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to check migration status: %w", err)
		}
		if len(pending) > 0 {
			database.Close()
			return nil, database.RequiresMigrationError()
		}

		app.DB = database
		app.Store = store.New(database, app.Config.AttachDir)
	}

	return app, nil
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}
