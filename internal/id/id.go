// Package id parses work item identifiers such as IR1042 or PA7 and
// recognizes target internal references.
package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var workItemIDPattern = regexp.MustCompile(`^(IR|SR|MA|RA|PA)(\d+)$`)

// Prefix is the class prefix of a work item identifier
type Prefix string

const (
	PrefixIncident         Prefix = "IR"
	PrefixServiceRequest   Prefix = "SR"
	PrefixManualActivity   Prefix = "MA"
	PrefixReviewActivity   Prefix = "RA"
	PrefixParallelActivity Prefix = "PA"
)

// Format formats a work item identifier
func Format(prefix Prefix, seq int) string {
	return string(prefix) + strconv.Itoa(seq)
}

// Parse parses a work item identifier and returns its prefix and sequence number
func Parse(s string) (Prefix, int, error) {
	s = strings.TrimSpace(s)

	m := workItemIDPattern.FindStringSubmatch(s)
	if m == nil {
		return "", 0, fmt.Errorf("invalid work item ID format: %s", s)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid work item ID format: %s", s)
	}
	return Prefix(m[1]), seq, nil
}

// IsUUID checks if a string is a canonical hyphenated UUID
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsWorkItemID checks if a string is a valid work item identifier
func IsWorkItemID(s string) bool {
	_, _, err := Parse(s)
	return err == nil
}
