package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/migrate"
	"github.com/lherron/itsmig/internal/records"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCode returns the exit code for err: the code of an ExitError, 1 for
// any other error and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code != 0 {
		return exitErr.Code
	}
	return 1
}

// phaseFlags are the options shared by the import commands.
type phaseFlags struct {
	diffTable             string
	affectedUserSurrogate string
	assignedToSurrogate   string
	preserveIDs           bool
	continueOnError       bool
}

func (f *phaseFlags) addDiffTable(cmd *cobra.Command, usage string) {
	cmd.Flags().StringVar(&f.diffTable, "diff-table", "", usage)
	cmd.MarkFlagRequired("diff-table")
}

func (f *phaseFlags) addSurrogates(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.affectedUserSurrogate, "affected-user-surrogate", "", "Display name of the user set as AffectedUser when the source user is not found")
	cmd.Flags().StringVar(&f.assignedToSurrogate, "assigned-to-surrogate", "", "Display name of the user set as AssignedTo when the source user is not found")
	cmd.MarkFlagRequired("affected-user-surrogate")
	cmd.MarkFlagRequired("assigned-to-surrogate")
}

func (f *phaseFlags) addCreation(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.preserveIDs, "preserve-ids", false, "Create work items with their legacy Id instead of a target-generated one")
	cmd.Flags().BoolVar(&f.continueOnError, "continue-on-error", false, "Keep going after a record fails to import")
}

func (f *phaseFlags) options() migrate.Options {
	return migrate.Options{
		AffectedUserSurrogate: f.affectedUserSurrogate,
		AssignedToSurrogate:   f.assignedToSurrogate,
		PreserveIDs:           f.preserveIDs,
		ContinueOnError:       f.continueOnError,
	}
}

// newMigrator completes opts from the loaded configuration.
func newMigrator(app *appctx.App, cmd *cobra.Command, opts migrate.Options) *migrate.Migrator {
	opts.AttachmentsMaxMB = app.Config.AttachmentsMaxMB
	opts.Records = records.Options{
		Encoding: app.Config.InputEncoding,
		Sheet:    app.Config.XLSXSheet,
	}
	opts.ShowProgress = true
	opts.Progress = cmd.ErrOrStderr()
	return migrate.New(app.Store, app.Log, opts)
}

// withDiffWriter opens the Diff Table for appending and closes it after fn.
func withDiffWriter(path string, fn func(w *difftable.Writer) error) (err error) {
	w, err := difftable.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close diff table: %w", cerr)
		}
	}()
	return fn(w)
}

// finishPhase prints the phase report and maps a failure to an exit code.
func finishPhase(cmd *cobra.Command, report *migrate.Report, err error) error {
	if report != nil && (err == nil || report.Records > 0) {
		report.Print(cmd.OutOrStdout())
	}
	if err != nil {
		code := 1
		if report != nil && report.ExitCode() != 0 {
			code = report.ExitCode()
		}
		return exitError(code, err)
	}
	return nil
}
