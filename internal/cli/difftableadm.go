package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/records"
)

var difftableAdmCmd = &cobra.Command{
	Use:   "difftable",
	Short: "Inspect Diff Table files",
}

var difftableVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare a source file's ids with a Diff Table",
	Long: `Verify reads the Id column of a source export and the PreviousId column
of a Diff Table and prints a unified diff of the two id lists. Lines only in
the source are records that were not migrated. The command exits 1 when the
lists differ.

Only Diff Table rows with the same id prefix as the source ids (IR, SR) are
compared, so one Diff Table can be checked against each export in turn.
Use --all to compare every row.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Options{NeedsDB: false}, runDifftableVerify),
}

var (
	difftableVerifyInput string
	difftableVerifyTable string
	difftableVerifyAll   bool
)

func init() {
	rootAdmCmd.AddCommand(difftableAdmCmd)
	difftableAdmCmd.AddCommand(difftableVerifyCmd)

	difftableVerifyCmd.Flags().StringVar(&difftableVerifyInput, "input", "", "Source export (CSV or XLSX) with an Id column")
	difftableVerifyCmd.Flags().StringVar(&difftableVerifyTable, "diff-table", "", "Diff Table file")
	difftableVerifyCmd.Flags().BoolVar(&difftableVerifyAll, "all", false, "Compare every Diff Table row regardless of id prefix")
	difftableVerifyCmd.MarkFlagRequired("input")
	difftableVerifyCmd.MarkFlagRequired("diff-table")
}

func runDifftableVerify(app *appctx.App, cmd *cobra.Command, args []string) error {
	source, err := records.ReadFile(difftableVerifyInput, records.Options{
		Encoding: app.Config.InputEncoding,
		Sheet:    app.Config.XLSXSheet,
	})
	if err != nil {
		return exitError(1, err)
	}
	if err := source.RequireColumns(domain.ColID); err != nil {
		return exitError(1, err)
	}
	ids := make([]string, 0, len(source.Records))
	for _, rec := range source.Records {
		if id := rec.Get(domain.ColID); id != "" {
			ids = append(ids, id)
		}
	}

	table, err := difftable.Load(difftableVerifyTable)
	if err != nil {
		return exitError(1, err)
	}
	if !difftableVerifyAll {
		table = table.Matching(ids)
	}

	diff, err := difftable.Verify(ids, table, difftableVerifyInput, difftableVerifyTable)
	if err != nil {
		return exitError(1, err)
	}
	if diff == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d id(s) match\n", len(ids))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), diff)
	return exitError(1, fmt.Errorf("diff table does not match %s", difftableVerifyInput))
}
