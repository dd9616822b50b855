package events

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lherron/itsmig/internal/domain"
)

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(tx *sql.Tx, event *domain.Event) error {
	query := `
		INSERT INTO event_log (resource_type, resource_uuid, event_type, payload)
		VALUES (?, ?, ?, ?)
	`

	executor := w.getExecutor(tx)
	_, err := executor.Exec(query, event.ResourceType, event.ResourceUUID, event.EventType, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogObjectCreated logs an object creation event
func (w *Writer) LogObjectCreated(tx *sql.Tx, objectUUID, objectID, class string) error {
	return w.logWithPayload(tx, "object", &objectUUID, "object.created", map[string]interface{}{
		"id":    objectID,
		"class": class,
	})
}

// LogRelationshipAdded logs a relationship between two objects
func (w *Writer) LogRelationshipAdded(tx *sql.Tx, relUUID, relationship, sourceUUID, targetUUID string) error {
	return w.logWithPayload(tx, "relationship", &relUUID, "relationship.added", map[string]interface{}{
		"relationship": relationship,
		"source_uuid":  sourceUUID,
		"target_uuid":  targetUUID,
	})
}

// LogProjectionCommitted logs an atomic parent + children write
func (w *Writer) LogProjectionCommitted(tx *sql.Tx, parentUUID string, childUUIDs []string) error {
	return w.logWithPayload(tx, "object", &parentUUID, "projection.committed", map[string]interface{}{
		"children": childUUIDs,
	})
}

// LogAttachmentCreated logs a file attachment upload
func (w *Writer) LogAttachmentCreated(tx *sql.Tx, objectUUID, filename string, size int64) error {
	return w.logWithPayload(tx, "attachment", &objectUUID, "attachment.created", map[string]interface{}{
		"filename":   filename,
		"size_bytes": size,
	})
}

func (w *Writer) logWithPayload(tx *sql.Tx, resourceType string, resourceUUID *string, eventType string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	payloadStr := string(data)
	return w.LogEvent(tx, &domain.Event{
		ResourceType: resourceType,
		ResourceUUID: resourceUUID,
		EventType:    eventType,
		Payload:      &payloadStr,
	})
}

// getExecutor returns the transaction if provided, otherwise the database
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
