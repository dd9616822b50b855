package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/lherron/itsmig/internal/db"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/id"
	"github.com/lherron/itsmig/internal/target"
)

// create inserts an object, validating its class and enumeration-backed
// fields, and logs an object.created event.
func (w *writer) create(ctx context.Context, class string, fields target.Fields) (target.ObjectRef, error) {
	cls, err := lookupClass(ctx, w.tx, class)
	if err != nil {
		return target.ObjectRef{}, err
	}

	if err := checkEnumFields(ctx, w.tx, class, fields); err != nil {
		return target.ObjectRef{}, err
	}

	objectUUID := uuid.NewString()
	objectID, err := assignID(w.tx, cls, fields)
	if err != nil {
		return target.ObjectRef{}, err
	}
	if objectID == "" {
		objectID = objectUUID
	}

	stored := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		stored[k] = encodeValue(v)
	}
	stored[domain.ColID] = objectID

	data, err := json.Marshal(stored)
	if err != nil {
		return target.ObjectRef{}, fmt.Errorf("failed to encode fields: %w", err)
	}

	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO objects (uuid, id, class_name, display_name, fields)
		VALUES (?, ?, ?, ?, ?)
	`, objectUUID, objectID, class, displayName(objectID, fields), string(data))
	if err != nil {
		if isUniqueViolation(err) {
			return target.ObjectRef{}, fmt.Errorf("object %s already exists", objectID)
		}
		return target.ObjectRef{}, fmt.Errorf("failed to create %s: %w", class, err)
	}

	if err := w.ew.LogObjectCreated(w.tx, objectUUID, objectID, class); err != nil {
		return target.ObjectRef{}, err
	}

	return target.ObjectRef{UUID: objectUUID, ID: objectID, Class: class}, nil
}

// relate links source to tgt, checking both ends against the relationship class.
func (w *writer) relate(ctx context.Context, relationship string, source, tgt target.ObjectRef) error {
	rc, err := lookupRelationshipClass(ctx, w.tx, relationship)
	if err != nil {
		return err
	}

	src, err := w.lookup(ctx, source.UUID)
	if err != nil {
		return fmt.Errorf("relationship source: %w", err)
	}
	dst, err := w.lookup(ctx, tgt.UUID)
	if err != nil {
		return fmt.Errorf("relationship target: %w", err)
	}

	if !classMatches(rc.SourceClass, src.Class) || !classMatches(rc.TargetClass, dst.Class) {
		return fmt.Errorf("relationship %s cannot link %s to %s", relationship, src.Class, dst.Class)
	}

	relUUID := uuid.NewString()
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO relationships (uuid, relationship_name, source_uuid, target_uuid)
		VALUES (?, ?, ?, ?)
	`, relUUID, relationship, src.UUID, dst.UUID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s already links %s to %s", relationship, src.ID, dst.ID)
		}
		return fmt.Errorf("failed to add relationship: %w", err)
	}

	return w.ew.LogRelationshipAdded(w.tx, relUUID, relationship, src.UUID, dst.UUID)
}

func (w *writer) lookup(ctx context.Context, objectUUID string) (target.ObjectRef, error) {
	ref := target.ObjectRef{UUID: objectUUID}
	err := w.tx.QueryRowContext(ctx, "SELECT id, class_name FROM objects WHERE uuid = ?", objectUUID).
		Scan(&ref.ID, &ref.Class)
	if err == sql.ErrNoRows {
		return ref, fmt.Errorf("%w: %s", target.ErrNotFound, objectUUID)
	}
	if err != nil {
		return ref, fmt.Errorf("failed to look up object: %w", err)
	}
	return ref, nil
}

// Get returns an object by UUID or human-readable identifier.
func (s *Store) Get(ctx context.Context, ref string) (target.ObjectRef, target.Fields, error) {
	var obj target.ObjectRef
	var raw string
	query := "SELECT uuid, id, class_name, fields FROM objects WHERE id = ?"
	args := []any{ref}
	if id.IsUUID(ref) {
		// Objects without a prefix sequence may carry a UUID as their id.
		query = "SELECT uuid, id, class_name, fields FROM objects WHERE uuid = ? OR id = ? ORDER BY uuid = ? DESC LIMIT 1"
		args = []any{ref, ref, ref}
	}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&obj.UUID, &obj.ID, &obj.Class, &raw)
	if err == sql.ErrNoRows {
		return obj, nil, fmt.Errorf("%w: %s", target.ErrNotFound, ref)
	}
	if err != nil {
		return obj, nil, fmt.Errorf("failed to get object: %w", err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return obj, nil, fmt.Errorf("object %s: %w", obj.ID, err)
	}
	return obj, fields, nil
}

// Related returns the targets of relationship whose source is source, in
// creation order.
func (s *Store) Related(ctx context.Context, source target.ObjectRef, relationship string) ([]target.ObjectRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.uuid, o.id, o.class_name
		FROM relationships r
		JOIN objects o ON o.uuid = r.target_uuid
		WHERE r.source_uuid = ? AND r.relationship_name = ?
		ORDER BY r.rowid
	`, source.UUID, relationship)
	if err != nil {
		return nil, fmt.Errorf("failed to query related objects: %w", err)
	}
	defer rows.Close()
	return scanRefs(rows)
}

// Relationships lists every relationship name leaving source with its targets.
func (s *Store) Relationships(ctx context.Context, source target.ObjectRef) (map[string][]target.ObjectRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT relationship_name FROM relationships WHERE source_uuid = ?
	`, source.UUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make(map[string][]target.ObjectRef, len(names))
	for _, name := range names {
		refs, err := s.Related(ctx, source, name)
		if err != nil {
			return nil, err
		}
		out[name] = refs
	}
	return out, nil
}

// FindUsers returns every user whose display name matches exactly.
func (s *Store) FindUsers(ctx context.Context, displayName string) ([]target.ObjectRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uuid, id, class_name FROM objects
		WHERE class_name = ? AND display_name = ?
		ORDER BY id
	`, domain.ClassUser, displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()
	return scanRefs(rows)
}

// UserDisplayNames lists all distinct user display names.
func (s *Store) UserDisplayNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT display_name FROM objects
		WHERE class_name = ? AND display_name IS NOT NULL
		ORDER BY display_name
	`, domain.ClassUser)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountObjects returns the number of objects of class.
func (s *Store) CountObjects(ctx context.Context, class string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM objects WHERE class_name = ?", class).Scan(&n)
	return n, err
}

func scanRefs(rows *sql.Rows) ([]target.ObjectRef, error) {
	var refs []target.ObjectRef
	for rows.Next() {
		var ref target.ObjectRef
		if err := rows.Scan(&ref.UUID, &ref.ID, &ref.Class); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// assignID returns the object's identifier: the caller's "Id" field when
// set, the next id from the class sequence, or "" for classes without one.
func assignID(tx *sql.Tx, cls *target.Class, fields target.Fields) (string, error) {
	if v, ok := fields[domain.ColID].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	if cls.IDPrefix == "" {
		return "", nil
	}
	next, err := db.NextID(tx, cls.IDPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to allocate id for %s: %w", cls.Name, err)
	}
	return next, nil
}

func displayName(objectID string, fields target.Fields) string {
	for _, key := range []string{"DisplayName", "Title", "Filename"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return objectID
}

func classMatches(pattern, class string) bool {
	return pattern == "*" || pattern == class
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339)
	}
	return v
}

// decodeFields restores integers as int64; timestamps come back as RFC3339 strings.
func decodeFields(raw string) (target.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}

	fields := make(target.Fields, len(m))
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				fields[k] = i
				continue
			}
			f, _ := n.Float64()
			fields[k] = f
			continue
		}
		fields[k] = v
	}
	return fields, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
