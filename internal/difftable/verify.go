package difftable

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/lherron/itsmig/internal/domain"
)

// Verify compares the legacy ids of a source file, in order, with the
// table's previous ids. It returns a unified diff, or "" when they match.
func Verify(sourceIDs []string, t *Table, sourceName, tableName string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(joinLines(sourceIDs)),
		B:        difflib.SplitLines(joinLines(t.PreviousIDs())),
		FromFile: sourceName,
		ToFile:   tableName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to diff ids: %w", err)
	}
	return text, nil
}

// Matching returns a table with the entries whose previous id is of the
// same kind (Incident, Service Request) as one of ids. A Diff Table shared
// by several phases can then be compared with one source file. Ids of no
// known kind only match each other.
func (t *Table) Matching(ids []string) *Table {
	kinds := map[domain.Kind]bool{}
	for _, id := range ids {
		kinds[kindOf(id)] = true
	}
	out := New()
	for _, e := range t.entries {
		if kinds[kindOf(e.PreviousID)] {
			out.Add(e)
		}
	}
	return out
}

func kindOf(id string) domain.Kind {
	kind, err := domain.KindForID(id)
	if err != nil {
		return ""
	}
	return kind
}
