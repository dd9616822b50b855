package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// SequenceDrift captures drift between id_sequences and the max existing
// numeric identifier for a prefix. Drift appears when objects are created
// with preserved legacy identifiers.
type SequenceDrift struct {
	Prefix   string
	MaxID    int
	SeqValue int
}

type sqlExecutor interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NextID allocates the next free identifier for prefix (e.g. IR1043),
// skipping identifiers already taken by preserved legacy ids.
func NextID(exec sqlExecutor, prefix string) (string, error) {
	seq, err := currentSequence(exec, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to read sequence %s: %w", prefix, err)
	}

	for {
		seq++
		candidate := prefix + strconv.Itoa(seq)
		var taken int
		if err := exec.QueryRow("SELECT COUNT(*) FROM objects WHERE id = ?", candidate).Scan(&taken); err != nil {
			return "", fmt.Errorf("failed to check id %s: %w", candidate, err)
		}
		if taken == 0 {
			if err := setSequence(exec, prefix, seq); err != nil {
				return "", fmt.Errorf("failed to update sequence %s: %w", prefix, err)
			}
			return candidate, nil
		}
	}
}

// NumericSuffix returns the number following prefix in id.
func NumericSuffix(prefix, id string) (int, bool) {
	if !strings.HasPrefix(strings.ToUpper(id), strings.ToUpper(prefix)) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// SequenceDrifts returns any sequences whose value is below the max existing ID.
func SequenceDrifts(exec sqlExecutor, prefixes []string) ([]SequenceDrift, error) {
	drifts := []SequenceDrift{}

	for _, prefix := range prefixes {
		maxID, err := maxExistingID(exec, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to compute max ID for %s: %w", prefix, err)
		}

		seqValue, err := currentSequence(exec, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to read sequence for %s: %w", prefix, err)
		}

		if seqValue < maxID {
			drifts = append(drifts, SequenceDrift{
				Prefix:   prefix,
				MaxID:    maxID,
				SeqValue: seqValue,
			})
		}
	}

	return drifts, nil
}

// FixSequenceDrifts moves drifted sequences up to the max existing IDs.
// Returns the list of sequences that were updated.
func FixSequenceDrifts(exec sqlExecutor, prefixes []string) ([]SequenceDrift, error) {
	drifts, err := SequenceDrifts(exec, prefixes)
	if err != nil {
		return nil, err
	}

	for _, drift := range drifts {
		if err := setSequence(exec, drift.Prefix, drift.MaxID); err != nil {
			return nil, fmt.Errorf("failed to update sequence for %s: %w", drift.Prefix, err)
		}
	}

	return drifts, nil
}

// SequencePrefixes lists the prefixes tracked in id_sequences.
func SequencePrefixes(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT prefix FROM id_sequences ORDER BY prefix")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func maxExistingID(exec sqlExecutor, prefix string) (int, error) {
	startPos := len(prefix) + 1
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTR(id, ?) AS INTEGER)), 0) FROM objects
		WHERE id GLOB ? AND SUBSTR(id, ?) NOT GLOB '*[^0-9]*'
	`
	var maxID int
	if err := exec.QueryRow(query, startPos, prefix+"[0-9]*", startPos).Scan(&maxID); err != nil {
		return 0, err
	}
	return maxID, nil
}

func currentSequence(exec sqlExecutor, prefix string) (int, error) {
	var seq sql.NullInt64
	err := exec.QueryRow("SELECT value FROM id_sequences WHERE prefix = ?", prefix).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return int(seq.Int64), nil
}

func setSequence(exec sqlExecutor, prefix string, value int) error {
	res, err := exec.Exec("UPDATE id_sequences SET value = ? WHERE prefix = ?", value, prefix)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	_, err = exec.Exec("INSERT INTO id_sequences (prefix, value) VALUES (?, ?)", prefix, value)
	return err
}
