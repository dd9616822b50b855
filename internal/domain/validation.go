package domain

import (
	"fmt"
	"strings"

	"github.com/lherron/itsmig/internal/id"
)

// ValidateLogType validates an activity log type
func ValidateLogType(s string) (LogType, error) {
	switch LogType(strings.TrimSpace(s)) {
	case LogTypeUserComment:
		return LogTypeUserComment, nil
	case LogTypeAnalystComment:
		return LogTypeAnalystComment, nil
	default:
		return "", fmt.Errorf("invalid log type %q: must be one of: UserComment, AnalystComment", s)
	}
}

// KindForID infers the entity kind from a legacy identifier prefix
// (IR, SR, MA, RA, PA). Prefix case is ignored.
func KindForID(s string) (Kind, error) {
	prefix, _, err := id.Parse(strings.ToUpper(s))
	if err != nil {
		return "", fmt.Errorf("unrecognized work item id: %q", s)
	}
	for _, fs := range []FieldSet{IncidentFields, ServiceRequestFields, ManualActivityFields, ReviewActivityFields, ParallelActivityFields} {
		if fs.Prefix == string(prefix) {
			return fs.Kind, nil
		}
	}
	return "", fmt.Errorf("unrecognized work item id: %q", s)
}
