package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is a connection to the SQLite file holding a target store.
type DB struct {
	*sql.DB
	path string
}

// Open opens the target database at path, creating its directory when
// needed. Foreign keys and the busy timeout are set per connection.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}
	return &DB{DB: conn, path: path}, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

type migration struct {
	version string
	script  string
}

// migrations returns the embedded schema scripts ordered by file name.
func migrations() ([]migration, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		script, err := migrationsFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		out = append(out, migration{version: strings.TrimPrefix(name, "migrations/"), script: string(script)})
	}
	return out, nil
}

// appliedVersions returns the recorded migration versions in order. A
// database without a schema_migrations table has none.
func (db *DB) appliedVersions() ([]string, error) {
	var exists int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'`,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check for schema_migrations table: %w", err)
	}
	if exists == 0 {
		return nil, nil
	}

	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migrations: %w", err)
	}
	return versions, nil
}

// Migrate runs all pending migrations
func (db *DB) Migrate() error {
	_, err := db.MigrateWithInfo()
	return err
}

// MigrateWithInfo applies the pending migrations, each in its own
// transaction, and returns the versions it applied.
func (db *DB) MigrateWithInfo() ([]string, error) {
	all, err := migrations()
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	done, err := db.appliedVersions()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(done))
	for _, v := range done {
		seen[v] = true
	}

	var applied []string
	for _, m := range all {
		if seen[m.version] {
			continue
		}
		if err := db.apply(m); err != nil {
			return applied, err
		}
		applied = append(applied, m.version)
	}
	return applied, nil
}

func (db *DB) apply(m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.script); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.version, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.version, err)
	}
	return nil
}

// MigrationStatus returns lists of applied and pending migrations
func (db *DB) MigrationStatus() (applied []string, pending []string, err error) {
	all, err := migrations()
	if err != nil {
		return nil, nil, err
	}
	applied, err = db.appliedVersions()
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool, len(applied))
	for _, v := range applied {
		seen[v] = true
	}
	for _, m := range all {
		if !seen[m.version] {
			pending = append(pending, m.version)
		}
	}
	return applied, pending, nil
}

// RequiresMigrationError returns nil when the schema is current, and
// otherwise an error naming the database, its last applied version and
// the command that brings it up to date.
func (db *DB) RequiresMigrationError() error {
	applied, pending, err := db.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	current := "none"
	if len(applied) > 0 {
		current = applied[len(applied)-1]
	}
	return fmt.Errorf("database at %s (version: %s) requires migration: %d pending migration(s). Run 'itsmigadm migrate' to update",
		db.path, current, len(pending))
}
