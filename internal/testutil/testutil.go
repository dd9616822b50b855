package testutil

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/lherron/itsmig/internal/db"
	"github.com/lherron/itsmig/internal/store"
)

// TempDB creates a migrated temporary SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "target.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// TempStore creates a target store over a temporary database and seeds it
// with cat when cat is non-nil.
func TempStore(t *testing.T, cat *store.Catalog) *store.Store {
	t.Helper()

	database, _ := TempDB(t)
	s := store.New(database, filepath.Join(t.TempDir(), "attachments"))
	if cat != nil {
		if _, err := s.Seed(context.Background(), cat); err != nil {
			t.Fatalf("Failed to seed catalog: %v", err)
		}
	}
	return s
}

// WriteFile writes content to a file in dir, creating parent directories
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// WriteCSV writes a header row followed by rows as a CSV file in dir
func WriteCSV(t *testing.T, dir, filename string, header []string, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("Failed to write header to %s: %v", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("Failed to write rows to %s: %v", path, err)
	}
	return path
}
