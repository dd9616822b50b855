// Package records reads legacy export files (CSV or XLSX) into ordered
// header -> value rows.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Record is one source row.
type Record struct {
	Row    int // 1-based data row number, header excluded
	Values map[string]string
}

// Get returns the trimmed value of column name ("" when absent).
func (r Record) Get(name string) string {
	return strings.TrimSpace(r.Values[name])
}

// Warning is a non-fatal problem found while reading.
type Warning struct {
	Row     int
	Message string
}

// File is the parsed content of one input file.
type File struct {
	Path     string
	Header   []string
	Records  []Record
	Warnings []Warning
}

// Options controls decoding.
type Options struct {
	// Encoding is one of auto, utf-8, utf-16le, utf-16be, windows-1252.
	Encoding string
	// Sheet selects the XLSX worksheet; empty means the first sheet.
	Sheet string
}

// ReadFile reads path according to its extension.
func ReadFile(path string, opts Options) (*File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path, opts)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		file, err := ReadCSV(f, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		file.Path = path
		return file, nil
	}
}

// ReadCSV parses delimited data with a header row.
func ReadCSV(r io.Reader, opts Options) (*File, error) {
	decoded, err := Decode(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row found")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	file := &File{}
	if err := file.setHeader(header); err != nil {
		return nil, err
	}

	row := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			file.Warnings = append(file.Warnings, Warning{Row: row, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}
		file.addRow(row, fields, true)
	}

	return file, nil
}

func (f *File) setHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	f.Header = make([]string, len(header))
	empty := true
	for i, h := range header {
		h = strings.TrimSpace(h)
		f.Header[i] = h
		if h == "" {
			continue
		}
		empty = false
		if seen[h] {
			return fmt.Errorf("duplicate header column: %s", h)
		}
		seen[h] = true
	}
	if empty {
		return fmt.Errorf("empty header row")
	}
	return nil
}

// addRow pads short rows and truncates long ones, recording a warning when
// warnShort is set. Fully blank rows are skipped silently.
func (f *File) addRow(row int, fields []string, warnShort bool) {
	blank := true
	for _, v := range fields {
		if strings.TrimSpace(v) != "" {
			blank = false
			break
		}
	}
	if blank {
		return
	}

	n := len(f.Header)
	if len(fields) < n {
		if warnShort {
			f.Warnings = append(f.Warnings, Warning{
				Row:     row,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding with empty values", len(fields), n),
			})
		}
		padded := make([]string, n)
		copy(padded, fields)
		fields = padded
	} else if len(fields) > n {
		f.Warnings = append(f.Warnings, Warning{
			Row:     row,
			Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(fields), n),
		})
		fields = fields[:n]
	}

	values := make(map[string]string, n)
	for i, h := range f.Header {
		if h == "" {
			continue
		}
		values[h] = fields[i]
	}
	f.Records = append(f.Records, Record{Row: row, Values: values})
}

// HasColumn reports whether the header contains name.
func (f *File) HasColumn(name string) bool {
	for _, h := range f.Header {
		if h == name {
			return true
		}
	}
	return false
}

// RequireColumns fails when any of names is missing from the header.
func (f *File) RequireColumns(names ...string) error {
	var missing []string
	for _, n := range names {
		if !f.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required column(s): %s", f.Path, strings.Join(missing, ", "))
	}
	return nil
}

// GroupBy indexes records by the trimmed value of column, preserving
// source order within each group. Records with an empty key are dropped.
func (f *File) GroupBy(column string) map[string][]Record {
	out := make(map[string][]Record)
	for _, r := range f.Records {
		key := r.Get(column)
		if key == "" {
			continue
		}
		out[key] = append(out[key], r)
	}
	return out
}
