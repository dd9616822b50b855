package domain

import (
	"time"
)

// LogEntry is a comment-style log entry that only exists as a child of a
// work item. It is implemented by UserComment and AnalystComment.
type LogEntry interface {
	LogType() LogType
	// Class is the target class of the log entry object.
	Class() string
	// Relationship links the parent work item to the entry.
	Relationship(parent Kind) string
	// Fields is the field mapping of the new log entry object.
	Fields(id string) map[string]any
}

// UserComment is an end-user comment.
type UserComment struct {
	EnteredBy   string
	EnteredDate time.Time
	Comment     string
}

// AnalystComment is an analyst comment, optionally private.
type AnalystComment struct {
	EnteredBy   string
	EnteredDate time.Time
	Comment     string
	IsPrivate   bool
}

func (UserComment) LogType() LogType { return LogTypeUserComment }
func (UserComment) Class() string    { return ClassUserCommentLog }

func (UserComment) Relationship(parent Kind) string {
	if parent == KindServiceRequest {
		return RelHasCommentLog
	}
	return RelHasUserComment
}

func (c UserComment) Fields(id string) map[string]any {
	return logFields(id, c.EnteredBy, c.EnteredDate, c.Comment)
}

func (AnalystComment) LogType() LogType { return LogTypeAnalystComment }
func (AnalystComment) Class() string    { return ClassAnalystComment }

func (AnalystComment) Relationship(parent Kind) string {
	if parent == KindServiceRequest {
		return RelHasCommentLog
	}
	return RelHasAnalystComment
}

func (c AnalystComment) Fields(id string) map[string]any {
	f := logFields(id, c.EnteredBy, c.EnteredDate, c.Comment)
	f["IsPrivate"] = c.IsPrivate
	return f
}

func logFields(id, enteredBy string, enteredDate time.Time, comment string) map[string]any {
	f := map[string]any{
		"Id":        id,
		"EnteredBy": enteredBy,
		"Comment":   comment,
	}
	if !enteredDate.IsZero() {
		f["EnteredDate"] = enteredDate
	}
	return f
}
