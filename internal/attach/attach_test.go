package attach

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestObjectDir(t *testing.T) {
	dir := ObjectDir("/tmp/attachments", "abc-123")
	expected := filepath.Join("/tmp/attachments", "objects", "abc-123")
	if dir != expected {
		t.Errorf("ObjectDir() = %q, want %q", dir, expected)
	}
}

func TestRelativePath(t *testing.T) {
	path := RelativePath("abc-123", "document.pdf")
	expected := filepath.Join("objects", "abc-123", "document.pdf")
	if path != expected {
		t.Errorf("RelativePath() = %q, want %q", path, expected)
	}
}

func TestAbsolutePath(t *testing.T) {
	path := AbsolutePath("/tmp/attachments", "objects/abc-123/doc.pdf")
	expected := filepath.Join("/tmp/attachments", "objects", "abc-123", "doc.pdf")
	if path != expected {
		t.Errorf("AbsolutePath() = %q, want %q", path, expected)
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), "application/pdf"},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "image/png"},
		{"text", []byte("printer on 3rd floor is jammed\n"), "text/plain"},
		{"binary", []byte{0x00, 0x01, 0x02, 0x03}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectMimeType(tt.content)
			if got != tt.want {
				t.Errorf("DetectMimeType(%s) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestValidateSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		maxMB   int64
		wantErr bool
	}{
		{"under limit", 1024, 1, false},
		{"at limit", 1024 * 1024, 1, false},
		{"over limit", 2 * 1024 * 1024, 1, true},
		{"no limit", 1000 * 1024 * 1024, 0, false},
		{"negative limit (no limit)", 1000 * 1024 * 1024, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSize(tt.size, tt.maxMB)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSize(%d, %d) error = %v, wantErr %v", tt.size, tt.maxMB, err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	srcPath := filepath.Join(tmpDir, "a.txt")
	content := []byte("test content for attachment")
	if err := os.WriteFile(srcPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	before := time.Now().UTC().Add(-time.Second)
	att, err := Load(srcPath, 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if att.Filename != "a.txt" {
		t.Errorf("Load() filename = %q, want a.txt", att.Filename)
	}
	if att.SizeBytes != int64(len(content)) {
		t.Errorf("Load() size = %d, want %d", att.SizeBytes, len(content))
	}
	if att.Checksum != Checksum(content) || len(att.Checksum) != 64 {
		t.Errorf("Load() checksum = %q", att.Checksum)
	}
	if att.MimeType != "text/plain" {
		t.Errorf("Load() mime = %q, want text/plain", att.MimeType)
	}
	if att.AddedAt.Before(before) {
		t.Errorf("Load() added_at = %v, want a fresh timestamp", att.AddedAt)
	}
	if string(att.Content) != string(content) {
		t.Errorf("Load() content = %q, want %q", att.Content, content)
	}
}

func TestLoadRejects(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := Load(tmpDir, 0); err == nil || !strings.Contains(err.Error(), "not a regular file") {
		t.Errorf("Load(dir) should reject directories, got %v", err)
	}

	big := filepath.Join(tmpDir, "big.bin")
	if err := os.WriteFile(big, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(big, 1); !errors.Is(err, ErrTooLarge) || !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("Load(big) should enforce size limit, got %v", err)
	}

	if _, err := Load(filepath.Join(tmpDir, "nonexistent.txt"), 0); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() on missing file error = %v", err)
	}
}

func TestWriteFileAndDeleteObjectDir(t *testing.T) {
	tmpDir := t.TempDir()

	objectUUID := "test-object-uuid"
	relPath := RelativePath(objectUUID, "file.txt")
	if err := WriteFile(tmpDir, relPath, []byte("test")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := os.ReadFile(AbsolutePath(tmpDir, relPath))
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(got) != "test" {
		t.Errorf("written content = %q, want %q", got, "test")
	}

	if err := DeleteObjectDir(tmpDir, objectUUID); err != nil {
		t.Fatalf("DeleteObjectDir() error = %v", err)
	}
	if _, err := os.Stat(ObjectDir(tmpDir, objectUUID)); !os.IsNotExist(err) {
		t.Error("directory still exists after DeleteObjectDir()")
	}

	// Should not error on non-existent directory
	if err := DeleteObjectDir(tmpDir, objectUUID); err != nil {
		t.Errorf("DeleteObjectDir() on non-existent dir error = %v", err)
	}
}
