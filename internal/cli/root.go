package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "itsmig",
	Short: "Migrate incidents and service requests into a target ticketing system",
	Long: `itsmig moves work items exported from a legacy service desk into a
target ticketing system. Each phase reads flat CSV or XLSX exports, resolves
users and enumeration values against the target, and records every created
work item in a Diff Table that later phases use to find their parents.

Phases run in order: check-enums, import incidents, import service-requests,
import activities (when deferred), import action-logs, import attachments.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to target database file (overrides ITSMIG_DB_PATH)")
	rootCmd.PersistentFlags().String("attach-dir", "", "Directory where the target stores attachment content")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}
