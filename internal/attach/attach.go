// Package attach handles attachment file I/O and path resolution.
// Stored files live under attach_dir/objects/<object_uuid>/<filename>
package attach

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lherron/itsmig/internal/domain"
)

// ErrTooLarge is returned for files over the configured size limit.
var ErrTooLarge = errors.New("attachment too large")

// ObjectDir returns the canonical directory for an attachment object's content.
// Path: attach_dir/objects/<object_uuid>
func ObjectDir(attachDir, objectUUID string) string {
	return filepath.Join(attachDir, "objects", objectUUID)
}

// RelativePath returns the relative path for an attachment file.
// Relative to attach_dir, e.g., objects/<object_uuid>/<filename>
func RelativePath(objectUUID, filename string) string {
	return filepath.Join("objects", objectUUID, filename)
}

// AbsolutePath returns the absolute path for an attachment file.
func AbsolutePath(attachDir, relativePath string) string {
	return filepath.Join(attachDir, relativePath)
}

// Load reads a source file into an Attachment: full content, size, sniffed
// MIME type, SHA-256 checksum and a fresh added timestamp.
// Files larger than maxMB are rejected (0 = unlimited).
func Load(path string, maxMB int64) (*domain.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if err := ValidateSize(info.Size(), maxMB); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &domain.Attachment{
		Filename:  filepath.Base(path),
		SizeBytes: int64(len(content)),
		MimeType:  DetectMimeType(content),
		Checksum:  Checksum(content),
		AddedAt:   time.Now().UTC(),
		Content:   content,
	}, nil
}

// WriteFile stores content at attach_dir/relativePath, creating parent directories.
func WriteFile(attachDir, relativePath string, content []byte) error {
	dst := AbsolutePath(attachDir, relativePath)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := os.WriteFile(dst, content, 0644); err != nil {
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	return nil
}

// Checksum returns the hex SHA-256 of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DetectMimeType sniffs the MIME type from content.
// Falls back to application/octet-stream if unknown.
func DetectMimeType(content []byte) string {
	mimeType := mimetype.Detect(content).String()

	// Strip parameters like charset
	if idx := strings.IndexByte(mimeType, ';'); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// ValidateSize checks if file size is within limits.
func ValidateSize(size int64, maxMB int64) error {
	if maxMB <= 0 {
		return nil // No limit
	}

	maxBytes := maxMB * 1024 * 1024
	if size > maxBytes {
		return fmt.Errorf("%w: size %d bytes exceeds limit of %d MB", ErrTooLarge, size, maxMB)
	}

	return nil
}

// DeleteObjectDir removes an attachment object's directory.
// Used to undo files written by a rolled back transaction.
func DeleteObjectDir(attachDir, objectUUID string) error {
	dir := ObjectDir(attachDir, objectUUID)
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete attachment directory: %w", err)
	}
	return nil
}
