package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/render"
	"github.com/lherron/itsmig/internal/store"
)

var seedAdmCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load enumeration lists and users into the target",
	Long: `Seed loads a YAML catalog into the target database:

  enumerations:
    - name: IncidentStatusEnum
      values:
        - display_name: Active
        - name: IncidentStatusEnum.Resolved
          display_name: Resolved
  users:
    - user_name: jdoe
      domain: CORP
      display_name: Doe, Jane
      email: jane.doe@example.com

Enumeration values are upserted by name. Users whose identifier already
exists are left untouched, so seeding the same file twice is safe.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runSeedAdm),
}

var (
	seedAdmFile string
	seedAdmJSON bool
)

func init() {
	rootAdmCmd.AddCommand(seedAdmCmd)

	seedAdmCmd.Flags().StringVarP(&seedAdmFile, "file", "f", "", "Catalog YAML file")
	seedAdmCmd.Flags().BoolVar(&seedAdmJSON, "json", false, "Output as JSON")
	seedAdmCmd.MarkFlagRequired("file")
}

func runSeedAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	cat, err := store.LoadCatalog(seedAdmFile)
	if err != nil {
		return exitError(1, err)
	}

	res, err := app.Store.Seed(cmd.Context(), cat)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to seed catalog: %w", err))
	}
	app.Log.WithField("file", seedAdmFile).Debug("seeded catalog")

	if seedAdmJSON {
		return render.JSON(cmd.OutOrStdout(), res)
	}
	printSeedResult(cmd, res)
	return nil
}

func printSeedResult(cmd *cobra.Command, res *store.SeedResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Seeded %d enumeration value(s)\n", res.EnumValues)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %d user(s), %d already present\n", res.UsersCreated, res.UsersSkipped)
}
