package domain

import (
	"time"
)

// Kind identifies a migrated entity type.
type Kind string

const (
	KindIncident         Kind = "incident"
	KindServiceRequest   Kind = "service_request"
	KindManualActivity   Kind = "manual_activity"
	KindReviewActivity   Kind = "review_activity"
	KindParallelActivity Kind = "parallel_activity"
)

// Target class names
const (
	ClassIncident         = "System.WorkItem.Incident"
	ClassServiceRequest   = "System.WorkItem.ServiceRequest"
	ClassManualActivity   = "System.WorkItem.Activity.ManualActivity"
	ClassReviewActivity   = "System.WorkItem.Activity.ReviewActivity"
	ClassParallelActivity = "System.WorkItem.Activity.ParallelActivity"
	ClassUser             = "System.Domain.User"
	ClassFileAttachment   = "System.FileAttachment"
	ClassUserCommentLog   = "System.WorkItem.TroubleTicket.UserCommentLog"
	ClassAnalystComment   = "System.WorkItem.TroubleTicket.AnalystCommentLog"
)

// Target relationship class names
const (
	RelAffectedUser      = "System.WorkItemAffectedUser"
	RelAssignedTo        = "System.WorkItemAssignedToUser"
	RelContainsActivity  = "System.WorkItemContainsActivity"
	RelHasFileAttachment = "System.WorkItemHasFileAttachment"
	RelHasUserComment    = "System.WorkItem.TroubleTicketHasUserComment"
	RelHasAnalystComment = "System.WorkItem.TroubleTicketHasAnalystComment"
	RelHasCommentLog     = "System.WorkItemHasCommentLog"
)

// Source column names shared by several input files
const (
	ColID           = "Id"
	ColParent       = "Parent"
	ColAffectedUser = "AffectedUser"
	ColAssignedTo   = "AssignedTo"
)

// Activity log columns
const (
	ColRelatedIncident       = "RelatedIncident"
	ColRelatedServiceRequest = "RelatedServiceRequest"
	ColEnteredBy             = "EnteredBy"
	ColEnteredDate           = "EnteredDate"
	ColComment               = "Comment"
	ColLogType               = "LogType"
	ColIsPrivate             = "IsPrivate"
)

// LogType is the kind of an activity log entry.
type LogType string

const (
	LogTypeUserComment    LogType = "UserComment"
	LogTypeAnalystComment LogType = "AnalystComment"
)

// DiffEntry maps a legacy identifier to the identifier and internal
// reference assigned by the target system.
type DiffEntry struct {
	PreviousID string `json:"previous_id"`
	CurrentID  string `json:"current_id"`
	CurrentRef string `json:"current_ref"`
}

// Attachment describes a file read from the legacy attachment tree.
type Attachment struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  string    `json:"mime_type"`
	Checksum  string    `json:"checksum"`
	AddedAt   time.Time `json:"added_at"`
	Content   []byte    `json:"-"`
}

// Event represents an event in the target event log
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceUUID *string   `json:"resource_uuid,omitempty" db:"resource_uuid"`
	EventType    string    `json:"event_type" db:"event_type"`
	Payload      *string   `json:"payload,omitempty" db:"payload"` // JSON
}
