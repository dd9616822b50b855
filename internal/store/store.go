// Package store provides the SQLite-backed target system. It implements
// target.System on top of internal/db, logging every write to the event log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lherron/itsmig/internal/attach"
	"github.com/lherron/itsmig/internal/db"
	"github.com/lherron/itsmig/internal/events"
	"github.com/lherron/itsmig/internal/target"
)

// Store is the root store for the target object model.
type Store struct {
	db        *db.DB
	attachDir string
}

var _ target.System = (*Store)(nil)

// New creates a new Store wrapping the given database connection.
// Attachment content is written under attachDir.
func New(database *db.DB, attachDir string) *Store {
	return &Store{db: database, attachDir: attachDir}
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// AttachDir returns the directory holding attachment content.
func (s *Store) AttachDir() string {
	return s.attachDir
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back and any attachment files written
// by fn are removed.
func (s *Store) withTx(ctx context.Context, fn func(w *writer) error) error {
	w, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer w.rollback()

	if err := fn(w); err != nil {
		return err
	}

	return w.commit()
}

func (s *Store) begin(ctx context.Context) (*writer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &writer{
		store: s,
		tx:    tx,
		ew:    events.NewWriter(s.db.DB),
	}, nil
}

// writer performs object writes inside one transaction.
type writer struct {
	store *Store
	tx    *sql.Tx
	ew    *events.Writer
	done  bool

	// object UUIDs whose attachment content is already on disk
	written []string
}

func (w *writer) commit() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.tx.Commit(); err != nil {
		w.discardFiles()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (w *writer) rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	w.discardFiles()
	if err := w.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func (w *writer) discardFiles() {
	for _, objectUUID := range w.written {
		_ = attach.DeleteObjectDir(w.store.attachDir, objectUUID)
	}
	w.written = nil
}

// Tx is an explicit transaction scope handed out by Begin.
type Tx struct {
	w *writer
}

var _ target.Tx = (*Tx)(nil)

// Begin opens a transaction scope. Writes made through it become visible
// together on Commit.
func (s *Store) Begin(ctx context.Context) (target.Tx, error) {
	w, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{w: w}, nil
}

// Create creates an object inside the transaction.
func (t *Tx) Create(ctx context.Context, class string, fields target.Fields) (target.ObjectRef, error) {
	return t.w.create(ctx, class, fields)
}

// Relate adds a relationship inside the transaction.
func (t *Tx) Relate(ctx context.Context, relationship string, source, tgt target.ObjectRef) error {
	return t.w.relate(ctx, relationship, source, tgt)
}

// CreateAttachment stores an attachment inside the transaction.
func (t *Tx) CreateAttachment(ctx context.Context, in target.AttachmentInput) (target.ObjectRef, error) {
	return t.w.createAttachment(ctx, in)
}

// Commit makes the transaction's writes visible.
func (t *Tx) Commit() error {
	return t.w.commit()
}

// Rollback discards the transaction's writes. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	return t.w.rollback()
}

// Create creates a single object in its own transaction.
func (s *Store) Create(ctx context.Context, class string, fields target.Fields) (target.ObjectRef, error) {
	var ref target.ObjectRef
	err := s.withTx(ctx, func(w *writer) error {
		var err error
		ref, err = w.create(ctx, class, fields)
		return err
	})
	return ref, err
}

// Relate adds a single relationship in its own transaction.
func (s *Store) Relate(ctx context.Context, relationship string, source, tgt target.ObjectRef) error {
	return s.withTx(ctx, func(w *writer) error {
		return w.relate(ctx, relationship, source, tgt)
	})
}

// CreateAttachment stores an attachment object in its own transaction.
func (s *Store) CreateAttachment(ctx context.Context, in target.AttachmentInput) (target.ObjectRef, error) {
	var ref target.ObjectRef
	err := s.withTx(ctx, func(w *writer) error {
		var err error
		ref, err = w.createAttachment(ctx, in)
		return err
	})
	return ref, err
}

// CommitProjection creates every child of p and links it to the parent,
// all in one transaction.
func (s *Store) CommitProjection(ctx context.Context, p target.Projection) ([]target.ObjectRef, error) {
	var refs []target.ObjectRef
	err := s.withTx(ctx, func(w *writer) error {
		parent, err := w.lookup(ctx, p.Parent.UUID)
		if err != nil {
			return fmt.Errorf("projection parent: %w", err)
		}

		childUUIDs := make([]string, 0, len(p.Children))
		for _, child := range p.Children {
			ref, err := w.create(ctx, child.Class, child.Fields)
			if err != nil {
				return err
			}
			if err := w.relate(ctx, child.Relationship, parent, ref); err != nil {
				return err
			}
			refs = append(refs, ref)
			childUUIDs = append(childUUIDs, ref.UUID)
		}

		return w.ew.LogProjectionCommitted(w.tx, parent.UUID, childUUIDs)
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}
