package migrate

import (
	"fmt"
	"io"

	"github.com/lherron/itsmig/internal/bulk"
)

// Report summarizes one phase.
type Report struct {
	Phase string `json:"phase"`
	// Records is the number of items the phase iterated over.
	Records int `json:"records"`
	// Created counts target objects created, children included.
	Created    int  `json:"created"`
	Skipped    int  `json:"skipped"`
	Warnings   int  `json:"warnings"`
	Surrogates int  `json:"surrogates"`
	Failed     int  `json:"failed"`
	Canceled   bool `json:"canceled,omitempty"`

	result *bulk.Result
}

func (r *Report) record(res *bulk.Result) {
	r.result = res
	r.Records = res.TotalItems
	r.Failed = res.Failed
	r.Canceled = res.Canceled
}

// Err returns the phase failure, or nil.
func (r *Report) Err() error {
	if r.result == nil {
		return nil
	}
	if err := r.result.Err(); err != nil {
		return fmt.Errorf("%s: %w", r.Phase, err)
	}
	return nil
}

// ExitCode follows the bulk convention: 0 ok, 5 partial, 1 failed.
func (r *Report) ExitCode() int {
	if r.result == nil {
		return 0
	}
	return r.result.ExitCode()
}

// Print writes a short summary to w.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "%s: %d records, %d created, %d skipped, %d warnings, %d surrogates, %d failed\n",
		r.Phase, r.Records, r.Created, r.Skipped, r.Warnings, r.Surrogates, r.Failed)
	if r.result != nil && (r.result.Failed > 0 || r.result.Canceled) {
		r.result.PrintSummary(w)
	}
}
