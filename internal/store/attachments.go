package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lherron/itsmig/internal/attach"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/target"
)

// AttachmentRecord is the stored metadata of an attachment object.
type AttachmentRecord struct {
	ObjectUUID   string `json:"object_uuid"`
	Filename     string `json:"filename"`
	RelativePath string `json:"relative_path"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
	Checksum     string `json:"checksum"`
	AddedAt      string `json:"added_at"`
}

// createAttachment creates a System.FileAttachment object and writes its
// content under the attachment directory. The file is removed again if the
// transaction does not commit.
func (w *writer) createAttachment(ctx context.Context, in target.AttachmentInput) (target.ObjectRef, error) {
	filename := filepath.Base(in.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		return target.ObjectRef{}, fmt.Errorf("invalid attachment filename %q", in.Filename)
	}

	addedAt := in.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	checksum := in.Checksum
	if checksum == "" {
		checksum = attach.Checksum(in.Content)
	}
	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = attach.DetectMimeType(in.Content)
	}

	ref, err := w.create(ctx, domain.ClassFileAttachment, target.Fields{
		"DisplayName": filename,
		"Size":        in.SizeBytes,
		"AddedDate":   addedAt,
		"Extension":   filepath.Ext(filename),
	})
	if err != nil {
		return target.ObjectRef{}, err
	}

	relPath := attach.RelativePath(ref.UUID, filename)
	if err := attach.WriteFile(w.store.attachDir, relPath, in.Content); err != nil {
		return target.ObjectRef{}, err
	}
	w.written = append(w.written, ref.UUID)

	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO attachments (object_uuid, filename, relative_path, mime_type, size_bytes, checksum, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ref.UUID, filename, relPath, mimeType, in.SizeBytes, checksum, addedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return target.ObjectRef{}, fmt.Errorf("failed to record attachment: %w", err)
	}

	if err := w.ew.LogAttachmentCreated(w.tx, ref.UUID, filename, in.SizeBytes); err != nil {
		return target.ObjectRef{}, err
	}
	return ref, nil
}

// Attachment returns the stored metadata of an attachment object.
func (s *Store) Attachment(ctx context.Context, objectUUID string) (*AttachmentRecord, error) {
	rec := &AttachmentRecord{ObjectUUID: objectUUID}
	var mimeType, checksum sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT filename, relative_path, mime_type, size_bytes, checksum, added_at
		FROM attachments WHERE object_uuid = ?
	`, objectUUID).Scan(&rec.Filename, &rec.RelativePath, &mimeType, &rec.SizeBytes, &checksum, &rec.AddedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: attachment %s", target.ErrNotFound, objectUUID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	rec.MimeType = mimeType.String
	rec.Checksum = checksum.String
	return rec, nil
}

// AttachmentPath returns the absolute path of an attachment's content.
func (s *Store) AttachmentPath(rec *AttachmentRecord) string {
	return attach.AbsolutePath(s.attachDir, rec.RelativePath)
}
