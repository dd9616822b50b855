package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/migrate"
)

var importServiceRequestsCmd = &cobra.Command{
	Use:   "service-requests",
	Short: "Create service requests with their sub-activities",
	Long: `Imports every service request of the input file and, right after each
one, its manual, review and parallel activities. Parallel activities may
contain manual activities one level deep.

With --defer-activities only the service requests are created; run
'itsmig import activities' afterwards to attach the activities.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runImportServiceRequests),
}

var (
	importServiceRequestsInput migrate.ServiceRequestInput
	importServiceRequestsFlags phaseFlags
)

func init() {
	importCmd.AddCommand(importServiceRequestsCmd)

	f := importServiceRequestsCmd.Flags()
	f.StringVar(&importServiceRequestsInput.ServiceRequests, "input", "", "Service request export (CSV or XLSX)")
	addActivityFlags(importServiceRequestsCmd, &importServiceRequestsInput.Activities)
	f.BoolVar(&importServiceRequestsInput.DeferActivities, "defer-activities", false, "Create service requests only; import activities in a later phase")
	importServiceRequestsCmd.MarkFlagRequired("input")
	importServiceRequestsFlags.addDiffTable(importServiceRequestsCmd, "Diff Table file to append to")
	importServiceRequestsFlags.addSurrogates(importServiceRequestsCmd)
	importServiceRequestsFlags.addCreation(importServiceRequestsCmd)
}

func addActivityFlags(cmd *cobra.Command, in *migrate.ActivityInput) {
	cmd.Flags().StringVar(&in.Manual, "manual-activities", "", "Manual activity export")
	cmd.Flags().StringVar(&in.Review, "review-activities", "", "Review activity export")
	cmd.Flags().StringVar(&in.Parallel, "parallel-activities", "", "Parallel activity export")
}

func runImportServiceRequests(app *appctx.App, cmd *cobra.Command, args []string) error {
	m := newMigrator(app, cmd, importServiceRequestsFlags.options())
	return withDiffWriter(importServiceRequestsFlags.diffTable, func(w *difftable.Writer) error {
		report, err := m.ImportServiceRequests(cmd.Context(), importServiceRequestsInput, w)
		return finishPhase(cmd, report, err)
	})
}
