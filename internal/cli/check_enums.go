package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/migrate"
)

var checkEnumsCmd = &cobra.Command{
	Use:   "check-enums",
	Short: "Check that every enumeration value in the inputs exists in the target",
	Long: `Check-enums reads the given input files and looks up every value of
their enumeration fields in the target's enumeration catalog. All files are
checked before anything is reported; every missing value is listed.

Nothing is written to the target. Run it before any import phase.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runCheckEnums),
}

var checkEnumsInputs = map[domain.Kind]*string{
	domain.KindIncident:         new(string),
	domain.KindServiceRequest:   new(string),
	domain.KindManualActivity:   new(string),
	domain.KindReviewActivity:   new(string),
	domain.KindParallelActivity: new(string),
}

func init() {
	rootCmd.AddCommand(checkEnumsCmd)

	f := checkEnumsCmd.Flags()
	f.StringVar(checkEnumsInputs[domain.KindIncident], "incidents", "", "Incident export")
	f.StringVar(checkEnumsInputs[domain.KindServiceRequest], "service-requests", "", "Service request export")
	f.StringVar(checkEnumsInputs[domain.KindManualActivity], "manual-activities", "", "Manual activity export")
	f.StringVar(checkEnumsInputs[domain.KindReviewActivity], "review-activities", "", "Review activity export")
	f.StringVar(checkEnumsInputs[domain.KindParallelActivity], "parallel-activities", "", "Parallel activity export")
	checkEnumsCmd.MarkFlagsOneRequired("incidents", "service-requests", "manual-activities", "review-activities", "parallel-activities")
}

func runCheckEnums(app *appctx.App, cmd *cobra.Command, args []string) error {
	inputs := map[domain.Kind]string{}
	for kind, path := range checkEnumsInputs {
		if *path != "" {
			inputs[kind] = *path
		}
	}

	m := newMigrator(app, cmd, migrate.Options{})
	if err := m.CheckEnums(cmd.Context(), inputs); err != nil {
		return exitError(1, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ All enumeration values found in %d file(s)\n", len(inputs))
	return nil
}
