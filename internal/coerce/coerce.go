// Package coerce turns raw source strings into typed field values.
// Every parser reports success with a boolean; malformed optional
// values are dropped from the resulting record instead of failing it.
package coerce

import (
	"strconv"
	"strings"
	"time"

	"github.com/lherron/itsmig/internal/domain"
)

// ValueKind tags a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindBool
	KindTime
	KindInt
)

// Value is a typed field value.
type Value struct {
	Kind ValueKind
	Str  string
	Bool bool
	Time time.Time
	Int  int64
}

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func TimeValue(t time.Time) Value { return Value{Kind: KindTime, Time: t} }
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: n} }

// Interface returns the Go value carried by v (nil for null).
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time
	case KindInt:
		return v.Int
	default:
		return nil
	}
}

// Record is a coerced source row. Absent keys mean the field is left unset.
type Record map[string]Value

// Fields flattens the record into a plain field mapping.
func (r Record) Fields() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}

// Has reports whether name is present.
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// timeLayouts are tried in order. The slash layouts cover en-US exports
// of the legacy console.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05", // SQLite datetime() format
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02",
}

// Time parses a timestamp. Values without a zone are taken as UTC.
func Time(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Bool parses a boolean.
func Bool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return b, true
}

// Int parses a base-10 integer.
func Int(raw string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Apply coerces raw against the schema. Required string fields are always
// set, optional strings only when non-empty, typed fields only when their
// parse succeeds. Columns not named by the schema are ignored.
func Apply(raw map[string]string, schema domain.FieldSet) Record {
	out := make(Record, len(schema.Fields))
	for _, f := range schema.Fields {
		v, present := raw[f.Name]
		if !present && !f.Required {
			continue
		}
		if val, ok := Field(f, v); ok {
			out[f.Name] = val
		}
	}
	return out
}

// Field coerces one raw value for f.
func Field(f domain.Field, raw string) (Value, bool) {
	switch f.Kind {
	case domain.FieldBool:
		b, ok := Bool(raw)
		if !ok {
			return Value{}, false
		}
		return BoolValue(b), true
	case domain.FieldTime:
		t, ok := Time(raw)
		if !ok {
			return Value{}, false
		}
		return TimeValue(t), true
	case domain.FieldInt:
		n, ok := Int(raw)
		if !ok {
			return Value{}, false
		}
		return IntValue(n), true
	default:
		if f.EnumList != "" {
			raw = strings.TrimSpace(raw)
		}
		if raw == "" && !f.Required {
			return Value{}, false
		}
		return String(raw), true
	}
}
