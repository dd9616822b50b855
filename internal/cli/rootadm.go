package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootAdmCmd = &cobra.Command{
	Use:   "itsmigadm",
	Short: "Administrative CLI for the itsmig target database",
	Long: `itsmigadm is the administrative companion to itsmig. It creates and
migrates the target database, seeds enumeration lists and users, inspects
migrated objects and reconciles Diff Tables with their source files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteAdmin runs the admin root command
func ExecuteAdmin(ctx context.Context) error {
	return rootAdmCmd.ExecuteContext(ctx)
}

func init() {
	rootAdmCmd.PersistentFlags().String("db", "", "Path to target database file (overrides ITSMIG_DB_PATH)")
	rootAdmCmd.PersistentFlags().String("attach-dir", "", "Directory where the target stores attachment content")
	rootAdmCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootAdmCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}
