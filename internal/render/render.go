// Package render writes command output as JSON, YAML or aligned tables.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents an output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTSV   Format = "tsv"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML, FormatTSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, yaml or tsv)", s)
	}
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	format Format
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, format Format) *Renderer {
	return &Renderer{writer: writer, format: format}
}

// Value renders data as JSON or YAML. Table formats fall back to JSON.
func (r *Renderer) Value(data interface{}) error {
	if r.format == FormatYAML {
		encoder := yaml.NewEncoder(r.writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return err
		}
		return encoder.Close()
	}
	return JSON(r.writer, data)
}

// Table renders rows under headers. TSV writes plain tab-separated lines;
// JSON and YAML render one object per row keyed by header.
func (r *Renderer) Table(headers []string, rows [][]string) error {
	switch r.format {
	case FormatJSON, FormatYAML:
		objects := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			obj := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					obj[h] = row[i]
				}
			}
			objects = append(objects, obj)
		}
		return r.Value(objects)
	case FormatTSV:
		if _, err := fmt.Fprintln(r.writer, strings.Join(headers, "\t")); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := fmt.Fprintln(r.writer, strings.Join(row, "\t")); err != nil {
				return err
			}
		}
		return nil
	}

	if len(rows) == 0 {
		return nil
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	r.tableRow(headers, widths)
	r.tableSeparator(widths)
	for _, row := range rows {
		r.tableRow(row, widths)
	}
	return nil
}

func (r *Renderer) tableRow(cells []string, widths []int) {
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		if i == len(cells)-1 || i == len(widths)-1 {
			fmt.Fprint(r.writer, cell)
			break
		}
		fmt.Fprintf(r.writer, "%-*s  ", widths[i], cell)
	}
	fmt.Fprintln(r.writer)
}

func (r *Renderer) tableSeparator(widths []int) {
	for i, width := range widths {
		fmt.Fprint(r.writer, strings.Repeat("-", width))
		if i < len(widths)-1 {
			fmt.Fprint(r.writer, "  ")
		}
	}
	fmt.Fprintln(r.writer)
}

// JSON writes data as indented JSON.
func JSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
