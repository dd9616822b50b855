package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/migrate"
)

var importActivitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Attach deferred sub-activities to migrated service requests",
	Long: `Imports the sub-activities of service requests created earlier with
--defer-activities. Each top-level parent id is looked up in the Diff Table;
parents that are missing there or in the target are skipped with a warning.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runImportActivities),
}

var (
	importActivitiesInput migrate.ActivityInput
	importActivitiesFlags phaseFlags
)

func init() {
	importCmd.AddCommand(importActivitiesCmd)

	addActivityFlags(importActivitiesCmd, &importActivitiesInput)
	importActivitiesCmd.MarkFlagsOneRequired("manual-activities", "review-activities", "parallel-activities")
	importActivitiesFlags.addDiffTable(importActivitiesCmd, "Diff Table written by the service request phase")
	importActivitiesFlags.addSurrogates(importActivitiesCmd)
	importActivitiesCmd.Flags().BoolVar(&importActivitiesFlags.continueOnError, "continue-on-error", false, "Keep going after a parent fails to import")
}

func runImportActivities(app *appctx.App, cmd *cobra.Command, args []string) error {
	table, err := difftable.Load(importActivitiesFlags.diffTable)
	if err != nil {
		return exitError(1, err)
	}
	m := newMigrator(app, cmd, importActivitiesFlags.options())
	report, err := m.ImportActivities(cmd.Context(), importActivitiesInput, table)
	return finishPhase(cmd, report, err)
}
