package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/lherron/itsmig/internal/attach"
	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/target"
)

// ImportAttachments walks root/<oldId>/<filename> and attaches every file
// to the work item that oldId was migrated to. Directories without a Diff
// Table row are skipped whole.
func (m *Migrator) ImportAttachments(ctx context.Context, root string, diff *difftable.Table) (*Report, error) {
	p := m.newPhase("attachments")

	if err := RequireDir(root); err != nil {
		return p.report, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return p.report, fmt.Errorf("failed to read attachment root: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			p.skip(logrus.Fields{"file": filepath.Join(root, e.Name())},
				"file outside an id directory, skipping")
			continue
		}
		dirs = append(dirs, e.Name())
	}

	return run(ctx, p, "Attachments", dirs, func(s string) string { return s },
		func(ctx context.Context, oldID string) error {
			return p.importAttachmentDir(ctx, filepath.Join(root, oldID), oldID, diff)
		})
}

func (p *phase) importAttachmentDir(ctx context.Context, dir, oldID string, diff *difftable.Table) error {
	fields := logrus.Fields{"old_id": oldID}

	mapped, ok := diff.Lookup(oldID)
	if !ok {
		p.skip(fields, "work item not in diff table, skipping attachment directory")
		return nil
	}
	fields["new_id"] = mapped.CurrentID

	parent, _, err := p.m.sys.Get(ctx, mapped.CurrentRef)
	if errors.Is(err, target.ErrNotFound) {
		p.skip(fields, "work item not found in target, skipping attachment directory")
		return nil
	}
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if !e.Type().IsRegular() {
			p.skip(logrus.Fields{"old_id": oldID, "file": path}, "not a regular file, skipping")
			continue
		}

		att, err := attach.Load(path, p.m.opts.AttachmentsMaxMB)
		if errors.Is(err, attach.ErrTooLarge) {
			p.skip(logrus.Fields{"old_id": oldID, "file": path, "error": err.Error()}, "attachment too large, skipping")
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		ref, err := p.attach(ctx, parent, att)
		if err != nil {
			return fmt.Errorf("failed to attach %s to %s: %w", att.Filename, mapped.CurrentID, err)
		}
		p.report.Created++

		p.log.WithFields(logrus.Fields{
			"old_id": oldID,
			"new_id": mapped.CurrentID,
			"file":   att.Filename,
			"size":   att.SizeBytes,
			"mime":   att.MimeType,
			"object": ref.UUID,
		}).Info("attached file")
	}
	return nil
}

// attach creates the attachment object and its relationship to parent in
// one transaction.
func (p *phase) attach(ctx context.Context, parent target.ObjectRef, att *domain.Attachment) (target.ObjectRef, error) {
	tx, err := p.m.sys.Begin(ctx)
	if err != nil {
		return target.ObjectRef{}, err
	}
	defer tx.Rollback()

	ref, err := tx.CreateAttachment(ctx, target.AttachmentInput{
		Filename:  att.Filename,
		SizeBytes: att.SizeBytes,
		MimeType:  att.MimeType,
		Checksum:  att.Checksum,
		AddedAt:   att.AddedAt,
		Content:   att.Content,
	})
	if err != nil {
		return target.ObjectRef{}, err
	}
	if err := tx.Relate(ctx, domain.RelHasFileAttachment, parent, ref); err != nil {
		return target.ObjectRef{}, err
	}
	if err := tx.Commit(); err != nil {
		return target.ObjectRef{}, err
	}
	return ref, nil
}
