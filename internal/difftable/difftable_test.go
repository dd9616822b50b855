package difftable

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/itsmig/internal/domain"
)

func TestTableAddLookup(t *testing.T) {
	table := New()
	require.NoError(t, table.Add(domain.DiffEntry{PreviousID: "IR42", CurrentID: "IR9001", CurrentRef: "ref-1"}))

	e, ok := table.Lookup("IR42")
	require.True(t, ok)
	assert.Equal(t, "IR9001", e.CurrentID)
	assert.Equal(t, "ref-1", e.CurrentRef)

	_, ok = table.Lookup("ir42")
	assert.False(t, ok, "lookup is an exact match")

	err := table.Add(domain.DiffEntry{PreviousID: "IR42", CurrentID: "IR9002"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Error(t, table.Add(domain.DiffEntry{CurrentID: "IR1"}))
	assert.Equal(t, 1, table.Len())
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.csv")

	w, err := Create(path)
	require.NoError(t, err)

	const n = 25
	for i := 1; i <= n; i++ {
		require.NoError(t, w.Append(domain.DiffEntry{
			PreviousID: fmt.Sprintf("IR%d", i),
			CurrentID:  fmt.Sprintf("IR%d", 1000+i),
			CurrentRef: fmt.Sprintf("guid-%d", i),
		}))
	}
	require.NoError(t, w.Close())

	table, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, n, table.Len())

	seen := map[string]bool{}
	for i, e := range table.Entries() {
		assert.False(t, seen[e.PreviousID], "previous id %s repeated", e.PreviousID)
		seen[e.PreviousID] = true

		got, ok := table.Lookup(e.PreviousID)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("IR%d", 1001+i), got.CurrentID)
		assert.Equal(t, fmt.Sprintf("guid-%d", i+1), got.CurrentRef)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `^PreviousId,CurrentId,CurrentGuid\nIR1,IR1001,guid-1\n`, string(data))
}

func TestWriterFlushesEveryRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.csv")

	w, err := Create(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(domain.DiffEntry{PreviousID: "SR1", CurrentID: "SR10", CurrentRef: "g"}))

	// Readable before Close.
	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestWriterAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.csv")
	require.NoError(t, os.WriteFile(path, []byte("PreviousId,CurrentId,CurrentGuid\nIR1,IR11,g1\n"), 0644))

	w, err := Create(path)
	require.NoError(t, err)

	assert.ErrorIs(t, w.Append(domain.DiffEntry{PreviousID: "IR1", CurrentID: "IR12"}), ErrDuplicate)
	require.NoError(t, w.Append(domain.DiffEntry{PreviousID: "IR2", CurrentID: "IR13", CurrentRef: "g2"}))
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Table().Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PreviousId,CurrentId,CurrentGuid\nIR1,IR11,g1\nIR2,IR13,g2\n", string(data))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	missingCol := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(missingCol, []byte("PreviousId,CurrentId\nIR1,IR2\n"), 0644))
	_, err := Load(missingCol)
	assert.ErrorContains(t, err, "CurrentGuid")

	dup := filepath.Join(dir, "dup.csv")
	require.NoError(t, os.WriteFile(dup, []byte("PreviousId,CurrentId,CurrentGuid\nIR1,IR2,a\nIR1,IR3,b\n"), 0644))
	_, err = Load(dup)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = Load(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerify(t *testing.T) {
	table := New()
	require.NoError(t, table.Add(domain.DiffEntry{PreviousID: "IR1", CurrentID: "IR11"}))
	require.NoError(t, table.Add(domain.DiffEntry{PreviousID: "IR3", CurrentID: "IR13"}))

	same, err := Verify([]string{"IR1", "IR3"}, table, "incidents.csv", "diff.csv")
	require.NoError(t, err)
	assert.Empty(t, same)

	diff, err := Verify([]string{"IR1", "IR2", "IR3"}, table, "incidents.csv", "diff.csv")
	require.NoError(t, err)
	assert.Contains(t, diff, "--- incidents.csv")
	assert.Contains(t, diff, "+++ diff.csv")
	assert.Contains(t, diff, "-IR2")
}

func TestMatching(t *testing.T) {
	table := New()
	for _, id := range []string{"IR1", "SR1", "IR2", "SR9"} {
		require.NoError(t, table.Add(domain.DiffEntry{PreviousID: id, CurrentID: id + "0"}))
	}

	assert.Equal(t, []string{"IR1", "IR2"}, table.Matching([]string{"IR7"}).PreviousIDs())
	assert.Equal(t, []string{"SR1", "SR9"}, table.Matching([]string{"SR1", "SR2"}).PreviousIDs())
	assert.Zero(t, table.Matching(nil).Len())
	// Prefix case is ignored; legacy ids of no known kind match nothing known.
	assert.Equal(t, []string{"IR1", "IR2"}, table.Matching([]string{"ir3"}).PreviousIDs())
	assert.Zero(t, table.Matching([]string{"TICKET-1"}).Len())
}
