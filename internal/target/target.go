// Package target describes the API of the ticketing system that receives
// migrated work items. The migration pipeline only talks to this interface;
// internal/store provides a SQLite-backed implementation.
package target

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrUnknownClass is returned for an unregistered class name.
	ErrUnknownClass = errors.New("unknown class")
	// ErrUnknownRelationship is returned for an unregistered relationship class.
	ErrUnknownRelationship = errors.New("unknown relationship class")
	// ErrInvalidEnum is returned when a field holds a value missing from its enumeration.
	ErrInvalidEnum = errors.New("value not in enumeration")
)

// Fields is an untyped field mapping. Values are string, bool, int64,
// time.Time or nil.
type Fields map[string]any

// ObjectRef identifies an object in the target system.
type ObjectRef struct {
	// UUID is the internal reference.
	UUID string `json:"uuid"`
	// ID is the human-readable identifier (e.g. IR1042).
	ID    string `json:"id"`
	Class string `json:"class"`
}

// Class is a registered object class.
type Class struct {
	Name     string `json:"name"`
	IDPrefix string `json:"id_prefix,omitempty"`
}

// RelationshipClass is a registered relationship between two classes.
type RelationshipClass struct {
	Name        string `json:"name"`
	SourceClass string `json:"source_class"`
	TargetClass string `json:"target_class"`
}

// EnumValue is one entry of the enumeration catalog.
type EnumValue struct {
	List        string `json:"list"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// NewObject is a child object created as part of a projection.
type NewObject struct {
	Class        string
	Relationship string
	Fields       Fields
}

// Projection is an atomic composite write: an existing parent plus new
// child objects, each linked to the parent by its relationship.
type Projection struct {
	Parent   ObjectRef
	Children []NewObject
}

// AttachmentInput is the payload of a file attachment.
type AttachmentInput struct {
	Filename  string
	SizeBytes int64
	MimeType  string
	Checksum  string
	AddedAt   time.Time
	Content   []byte
}

// Writer groups the write calls that are also available inside a Tx.
type Writer interface {
	// Create creates an object of class from fields. A string "Id" field,
	// when present and non-empty, is used as the object's identifier;
	// otherwise one is generated.
	Create(ctx context.Context, class string, fields Fields) (ObjectRef, error)
	// Relate links source to target through relationship.
	Relate(ctx context.Context, relationship string, source, target ObjectRef) error
	// CreateAttachment stores a file attachment object.
	CreateAttachment(ctx context.Context, in AttachmentInput) (ObjectRef, error)
}

// Tx is a transaction scope. Nothing written through it is visible until
// Commit; Rollback after Commit is a no-op.
type Tx interface {
	Writer
	Commit() error
	Rollback() error
}

// System is the target ticketing system.
type System interface {
	Writer

	Class(ctx context.Context, name string) (*Class, error)
	RelationshipClass(ctx context.Context, name string) (*RelationshipClass, error)
	EnumCatalog(ctx context.Context) ([]EnumValue, error)

	// FindUsers returns every user whose display name matches exactly.
	FindUsers(ctx context.Context, displayName string) ([]ObjectRef, error)
	// UserDisplayNames lists all user display names.
	UserDisplayNames(ctx context.Context) ([]string, error)

	Get(ctx context.Context, ref string) (ObjectRef, Fields, error)
	// Related returns the targets of relationship whose source is source.
	Related(ctx context.Context, source ObjectRef, relationship string) ([]ObjectRef, error)

	// CommitProjection creates all children and their relationships to
	// the parent in a single transaction and returns the children refs.
	CommitProjection(ctx context.Context, p Projection) ([]ObjectRef, error)

	Begin(ctx context.Context) (Tx, error)
}
