package cli

import (
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run one import phase",
	Long: `Import runs a single migration phase against the target.

Incidents and service requests append one row per created work item to the
Diff Table (PreviousId,CurrentId,CurrentGuid). Later phases read the Diff
Table to find the target work item of each legacy id. Records whose legacy
id is already in the Diff Table are skipped, so a phase can be re-run after
an interruption.`,
}

func init() {
	rootCmd.AddCommand(importCmd)
}
