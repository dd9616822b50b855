package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/render"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	rootCmd.AddCommand(newVersionCmd("itsmig", []string{
		"check-enums",
		"import incidents", "import service-requests", "import activities",
		"import action-logs", "import attachments",
		"run", "version",
	}))
	rootAdmCmd.AddCommand(newVersionCmd("itsmigadm", []string{
		"init", "migrate", "seed", "show", "difftable verify", "doctor", "version",
	}))
}

// newVersionCmd builds the version command of one binary. commands is
// reported by --json so scripts can probe what the build supports.
func newVersionCmd(binary string, commands []string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  fmt.Sprintf(`Displays version, commit, and build date information for %s.`, binary),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{
					"binary":             binary,
					"version":            Version,
					"commit":             GitCommit,
					"build_date":         BuildDate,
					"supported_commands": commands,
					"input_formats":      []string{"csv", "xlsx"},
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", binary, Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", GitCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", BuildDate)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
