package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/difftable"
)

var importIncidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Create incidents and record them in the Diff Table",
	Long: `Imports every incident of the input file. Enumeration values are
checked first; a missing value aborts the phase before anything is created.
AffectedUser and AssignedTo are resolved by display name and fall back to the
surrogate users when no single match exists.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runImportIncidents),
}

var (
	importIncidentsInput string
	importIncidentsFlags phaseFlags
)

func init() {
	importCmd.AddCommand(importIncidentsCmd)

	importIncidentsCmd.Flags().StringVar(&importIncidentsInput, "input", "", "Incident export (CSV or XLSX)")
	importIncidentsCmd.MarkFlagRequired("input")
	importIncidentsFlags.addDiffTable(importIncidentsCmd, "Diff Table file to append to")
	importIncidentsFlags.addSurrogates(importIncidentsCmd)
	importIncidentsFlags.addCreation(importIncidentsCmd)
}

func runImportIncidents(app *appctx.App, cmd *cobra.Command, args []string) error {
	m := newMigrator(app, cmd, importIncidentsFlags.options())
	return withDiffWriter(importIncidentsFlags.diffTable, func(w *difftable.Writer) error {
		report, err := m.ImportIncidents(cmd.Context(), importIncidentsInput, w)
		return finishPhase(cmd, report, err)
	})
}
