// Package difftable persists the mapping from legacy identifiers to the
// identifiers and internal references assigned by the target. The file is
// a CSV with header PreviousId,CurrentId,CurrentGuid, appended to one row
// per created work item.
package difftable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/records"
)

// Column names of the Diff Table file.
const (
	ColPreviousID  = "PreviousId"
	ColCurrentID   = "CurrentId"
	ColCurrentGUID = "CurrentGuid"
)

// Header is the Diff Table header row.
var Header = []string{ColPreviousID, ColCurrentID, ColCurrentGUID}

// ErrDuplicate is returned when a previous id is added twice.
var ErrDuplicate = errors.New("duplicate previous id")

// Table is an in-memory Diff Table keyed by previous id.
type Table struct {
	entries []domain.DiffEntry
	index   map[string]int
}

// New returns an empty table.
func New() *Table {
	return &Table{index: map[string]int{}}
}

// Add appends e. Previous ids are unique.
func (t *Table) Add(e domain.DiffEntry) error {
	if e.PreviousID == "" {
		return fmt.Errorf("diff entry without previous id")
	}
	if _, ok := t.index[e.PreviousID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, e.PreviousID)
	}
	t.index[e.PreviousID] = len(t.entries)
	t.entries = append(t.entries, e)
	return nil
}

// Lookup finds the entry for previousID by exact match.
func (t *Table) Lookup(previousID string) (domain.DiffEntry, bool) {
	i, ok := t.index[previousID]
	if !ok {
		return domain.DiffEntry{}, false
	}
	return t.entries[i], true
}

// Entries returns the entries in insertion order.
func (t *Table) Entries() []domain.DiffEntry {
	return t.entries
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Load reads a Diff Table file.
func Load(path string) (*Table, error) {
	file, err := records.ReadFile(path, records.Options{Encoding: "auto"})
	if err != nil {
		return nil, err
	}
	if err := file.RequireColumns(Header...); err != nil {
		return nil, err
	}

	t := New()
	for _, rec := range file.Records {
		e := domain.DiffEntry{
			PreviousID: rec.Get(ColPreviousID),
			CurrentID:  rec.Get(ColCurrentID),
			CurrentRef: rec.Get(ColCurrentGUID),
		}
		if err := t.Add(e); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, rec.Row, err)
		}
	}
	return t, nil
}

// Writer stream-appends entries to a Diff Table file, flushing after every
// row so an interrupted phase leaves a valid file behind.
type Writer struct {
	path  string
	f     *os.File
	csv   *csv.Writer
	table *Table
}

// Create opens path for appending. A new or empty file gets the header; an
// existing file is loaded first so previous ids stay unique across runs.
func Create(path string) (*Writer, error) {
	table := New()

	info, err := os.Stat(path)
	switch {
	case err == nil && info.Size() > 0:
		table, err = Load(path)
		if err != nil {
			return nil, fmt.Errorf("existing diff table: %w", err)
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to stat diff table: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open diff table: %w", err)
	}

	w := &Writer{path: path, f: f, csv: csv.NewWriter(f), table: table}
	if info == nil || info.Size() == 0 {
		if err := w.writeRow(Header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Append records e in the table and writes it to the file.
func (w *Writer) Append(e domain.DiffEntry) error {
	if err := w.table.Add(e); err != nil {
		return err
	}
	return w.writeRow([]string{e.PreviousID, e.CurrentID, e.CurrentRef})
}

func (w *Writer) writeRow(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("failed to write diff table %s: %w", w.path, err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to write diff table %s: %w", w.path, err)
	}
	return nil
}

// Table returns every entry, including those loaded from an existing file.
func (w *Writer) Table() *Table {
	return w.table
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// PreviousIDs lists the previous ids in insertion order, one per line.
func (t *Table) PreviousIDs() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.PreviousID
	}
	return out
}

func joinLines(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return strings.Join(ids, "\n") + "\n"
}
