package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/render"
	"github.com/lherron/itsmig/internal/target"
)

var showAdmCmd = &cobra.Command{
	Use:   "show <id|uuid>",
	Short: "Print a target object with its relationships",
	Long: `Show prints an object of the target database as JSON (or YAML with
--yaml): its class, Id, internal reference, fields and outgoing
relationships grouped by relationship class.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runShowAdm),
}

var showAdmYAML bool

func init() {
	rootAdmCmd.AddCommand(showAdmCmd)
	showAdmCmd.Flags().BoolVar(&showAdmYAML, "yaml", false, "Output as YAML")
}

type showOutput struct {
	UUID          string                        `json:"uuid" yaml:"uuid"`
	ID            string                        `json:"id" yaml:"id"`
	Class         string                        `json:"class" yaml:"class"`
	Fields        target.Fields                 `json:"fields" yaml:"fields"`
	Relationships map[string][]target.ObjectRef `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

func runShowAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ref, fields, err := app.Store.Get(ctx, args[0])
	if err != nil {
		return exitError(1, err)
	}
	rels, err := app.Store.Relationships(ctx, ref)
	if err != nil {
		return exitError(1, err)
	}

	format := render.FormatJSON
	if showAdmYAML {
		format = render.FormatYAML
	}
	return render.NewRenderer(cmd.OutOrStdout(), format).Value(showOutput{
		UUID:          ref.UUID,
		ID:            ref.ID,
		Class:         ref.Class,
		Fields:        fields,
		Relationships: rels,
	})
}
