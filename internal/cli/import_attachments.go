package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/difftable"
)

var importAttachmentsCmd = &cobra.Command{
	Use:   "attachments",
	Short: "Upload attachment files to migrated work items",
	Long: `Imports the files under --root. Every direct subdirectory is named
after a legacy work item id and holds that item's files:

  root/IR42/screenshot.png
  root/SR7/quote.pdf

Directories whose id is not in the Diff Table are skipped. Files larger
than attachments_max_mb and nested directories are skipped with a warning.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runImportAttachments),
}

var (
	importAttachmentsRoot  string
	importAttachmentsFlags phaseFlags
)

func init() {
	importCmd.AddCommand(importAttachmentsCmd)

	importAttachmentsCmd.Flags().StringVar(&importAttachmentsRoot, "root", "", "Directory with one subdirectory per legacy work item id")
	importAttachmentsCmd.MarkFlagRequired("root")
	importAttachmentsFlags.addDiffTable(importAttachmentsCmd, "Diff Table written by the work item phases")
	importAttachmentsCmd.Flags().BoolVar(&importAttachmentsFlags.continueOnError, "continue-on-error", false, "Keep going after a file fails to import")
}

func runImportAttachments(app *appctx.App, cmd *cobra.Command, args []string) error {
	table, err := difftable.Load(importAttachmentsFlags.diffTable)
	if err != nil {
		return exitError(1, err)
	}
	m := newMigrator(app, cmd, importAttachmentsFlags.options())
	report, err := m.ImportAttachments(cmd.Context(), importAttachmentsRoot, table)
	return finishPhase(cmd, report, err)
}
