// Package bulk runs a migration phase over its records one at a time,
// rendering a progress line when writing to a terminal and one line per
// item otherwise.
package bulk

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Operation represents a bulk operation configuration
type Operation struct {
	Label           string
	ContinueOnError bool
	ShowProgress    bool
	// Progress receives the progress output. Defaults to os.Stderr.
	Progress io.Writer
}

// Result represents the result of a bulk operation
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Canceled   bool
	Errors     []ItemError
}

// ItemError represents an error for a specific item
type ItemError struct {
	Item  string
	Error error
}

// Execute runs fn on every item in order. Processing stops at the first
// error unless ContinueOnError is set, and between items once ctx is done.
func Execute[T any](ctx context.Context, op *Operation, items []T, key func(T) string, fn func(context.Context, T) error) *Result {
	result := &Result{
		TotalItems: len(items),
	}

	out := op.Progress
	if out == nil {
		out = os.Stderr
	}
	showProgress := op.ShowProgress && isTerminal(out)
	showLines := op.ShowProgress && !showProgress
	label := op.Label
	if label == "" {
		label = "Processing"
	}

	defer func() {
		// Clear progress line
		if showProgress {
			fmt.Fprintf(out, "\r\033[K")
		}
	}()

	for i, item := range items {
		if ctx.Err() != nil {
			result.Canceled = true
			return result
		}

		if showProgress {
			pct := (i + 1) * 100 / len(items)
			fmt.Fprintf(out, "\r%s [%s] %d/%d (✓ %d ✗ %d)",
				label, progressBar(pct, 20), i+1, len(items), result.Succeeded, result.Failed)
		} else if showLines {
			fmt.Fprintf(out, "%s %d/%d: %s\n", label, i+1, len(items), key(item))
		}

		if err := fn(ctx, item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{
				Item:  key(item),
				Error: err,
			})

			if !op.ContinueOnError {
				return result
			}
			continue
		}
		result.Succeeded++
	}

	return result
}

// ExitCode returns the appropriate exit code for the result
func (r *Result) ExitCode() int {
	if r.Failed == 0 && !r.Canceled {
		return 0 // All succeeded
	}
	if r.Succeeded > 0 {
		return 5 // Partial success
	}
	return 1 // All failed
}

// Err summarizes a failed result as an error, or returns nil.
func (r *Result) Err() error {
	switch {
	case r.Canceled:
		return fmt.Errorf("canceled after %d of %d records", r.Succeeded+r.Failed, r.TotalItems)
	case r.Failed == 1:
		return fmt.Errorf("%s: %w", r.Errors[0].Item, r.Errors[0].Error)
	case r.Failed > 1:
		return fmt.Errorf("%d of %d records failed", r.Failed, r.TotalItems)
	}
	return nil
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	if r.Failed == 0 && !r.Canceled {
		fmt.Fprintf(w, "\n✓ All %d records succeeded\n", r.TotalItems)
	} else if r.Succeeded == 0 {
		fmt.Fprintf(w, "\n✗ No records succeeded (%d failed, %d total)\n", r.Failed, r.TotalItems)
	} else {
		fmt.Fprintf(w, "\n⚠ Partial success: %d succeeded, %d failed (out of %d)\n",
			r.Succeeded, r.Failed, r.TotalItems)
	}

	if len(r.Errors) > 0 && len(r.Errors) <= 10 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
		}
	} else if len(r.Errors) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(r.Errors))
		for _, e := range r.Errors[:10] {
			fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
		}
	}
}

// progressBar creates a simple ASCII progress bar
func progressBar(percent, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// isTerminal checks if w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
