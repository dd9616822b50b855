package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/difftable"
)

var importActionLogsCmd = &cobra.Command{
	Use:   "action-logs",
	Short: "Attach comment log entries to migrated work items",
	Long: `Imports activity log entries (user and analyst comments). Each entry is
attached to the work item named by RelatedIncident or RelatedServiceRequest,
found through the Diff Table. Entries of unknown work items are skipped.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runImportActionLogs),
}

var (
	importActionLogsInput string
	importActionLogsFlags phaseFlags
)

func init() {
	importCmd.AddCommand(importActionLogsCmd)

	importActionLogsCmd.Flags().StringVar(&importActionLogsInput, "input", "", "Action log export (CSV or XLSX)")
	importActionLogsCmd.MarkFlagRequired("input")
	importActionLogsFlags.addDiffTable(importActionLogsCmd, "Diff Table written by the work item phases")
	importActionLogsCmd.Flags().BoolVar(&importActionLogsFlags.continueOnError, "continue-on-error", false, "Keep going after an entry fails to import")
}

func runImportActionLogs(app *appctx.App, cmd *cobra.Command, args []string) error {
	table, err := difftable.Load(importActionLogsFlags.diffTable)
	if err != nil {
		return exitError(1, err)
	}
	m := newMigrator(app, cmd, importActionLogsFlags.options())
	report, err := m.ImportActionLogs(cmd.Context(), importActionLogsInput, table)
	return finishPhase(cmd, report, err)
}
