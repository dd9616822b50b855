// Package enumcheck validates enumeration-backed source columns against the
// target catalog before any record is written. Every violation in every
// input is collected and reported in one error.
package enumcheck

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/records"
	"github.com/lherron/itsmig/internal/target"
)

// Catalog indexes enumeration display names by list.
type Catalog map[string]map[string]struct{}

// NewCatalog builds a Catalog from the target's enumeration values.
func NewCatalog(values []target.EnumValue) Catalog {
	c := Catalog{}
	for _, v := range values {
		if c[v.List] == nil {
			c[v.List] = map[string]struct{}{}
		}
		c[v.List][v.DisplayName] = struct{}{}
	}
	return c
}

// LoadCatalog reads the enumeration catalog from sys.
func LoadCatalog(ctx context.Context, sys target.System) (Catalog, error) {
	values, err := sys.EnumCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enumeration catalog: %w", err)
	}
	return NewCatalog(values), nil
}

// Has reports whether displayName is a value of list.
func (c Catalog) Has(list, displayName string) bool {
	_, ok := c[list][displayName]
	return ok
}

// Input is one source file to check together with its schema.
type Input struct {
	Schema domain.FieldSet
	File   *records.File
}

// Violation is one distinct unknown value.
type Violation struct {
	Kind     domain.Kind `json:"kind"`
	File     string      `json:"file"`
	Field    string      `json:"field"`
	List     string      `json:"list"`
	Value    string      `json:"value"`
	FirstRow int         `json:"first_row"`
	Count    int         `json:"count"`
}

// ValidationError aggregates every violation found across all inputs.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d enumeration value(s) not found in the target catalog:", len(e.Violations))
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %s %s=%q (%s) first at %s row %d, %d occurrence(s)",
			v.Kind, v.Field, v.Value, v.List, v.File, v.FirstRow, v.Count)
	}
	return b.String()
}

// Has reports whether the error names the field/value pair.
func (e *ValidationError) Has(field, value string) bool {
	for _, v := range e.Violations {
		if v.Field == field && v.Value == value {
			return true
		}
	}
	return false
}

// Check scans every record of every input. A non-empty value that is not a
// display name of its field's list is a violation; empty values are unset
// and always pass. It returns a *ValidationError when anything failed.
func Check(catalog Catalog, log logrus.FieldLogger, inputs ...Input) error {
	type key struct {
		kind         domain.Kind
		field, value string
	}
	index := map[key]int{}
	var violations []Violation

	for _, in := range inputs {
		enumFields := in.Schema.EnumFields()
		fields := make([]string, 0, len(enumFields))
		for field := range enumFields {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		checked := 0
		for _, rec := range in.File.Records {
			for _, field := range fields {
				value := rec.Get(field)
				if value == "" {
					continue
				}
				list := enumFields[field]
				if catalog.Has(list, value) {
					continue
				}

				k := key{in.Schema.Kind, field, value}
				if i, seen := index[k]; seen {
					violations[i].Count++
					continue
				}
				index[k] = len(violations)
				violations = append(violations, Violation{
					Kind:     in.Schema.Kind,
					File:     in.File.Path,
					Field:    field,
					List:     list,
					Value:    value,
					FirstRow: rec.Row,
					Count:    1,
				})
			}
			checked++
		}

		log.WithFields(logrus.Fields{
			"kind":    in.Schema.Kind,
			"file":    in.File.Path,
			"records": checked,
		}).Debug("enumeration check scanned file")
	}

	if len(violations) == 0 {
		return nil
	}

	for _, v := range violations {
		log.WithFields(logrus.Fields{
			"kind":      v.Kind,
			"field":     v.Field,
			"value":     v.Value,
			"list":      v.List,
			"first_row": v.FirstRow,
		}).Error("enumeration value not in target catalog")
	}
	return &ValidationError{Violations: violations}
}
