package migrate

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lherron/itsmig/internal/coerce"
	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/enumcheck"
	"github.com/lherron/itsmig/internal/records"
	"github.com/lherron/itsmig/internal/target"
)

// ServiceRequestInput names the files of the service request phase.
type ServiceRequestInput struct {
	ServiceRequests string
	Activities      ActivityInput
	// DeferActivities leaves sub-activities to ImportActivities.
	DeferActivities bool
}

// ImportIncidents creates one Incident per record and appends its row to
// the Diff Table as soon as it exists in the target.
func (m *Migrator) ImportIncidents(ctx context.Context, input string, diff *difftable.Writer) (*Report, error) {
	p := m.newPhase("incidents")

	if err := RequireFile(input); err != nil {
		return p.report, err
	}
	f, err := p.read(input)
	if err != nil {
		return p.report, err
	}
	if err := f.RequireColumns(domain.ColID); err != nil {
		return p.report, err
	}
	if err := p.checkEnums(ctx, enumcheck.Input{Schema: domain.IncidentFields, File: f}); err != nil {
		return p.report, err
	}
	p.checkSurrogates(ctx, m.opts.AffectedUserSurrogate, m.opts.AssignedToSurrogate)

	return run(ctx, p, "Incidents", f.Records, recordKey, func(ctx context.Context, rec records.Record) error {
		_, _, err := p.createWorkItem(ctx, domain.IncidentFields, rec, diff)
		return err
	})
}

// ImportServiceRequests creates one Service Request per record, then its
// sub-activities unless they are deferred.
func (m *Migrator) ImportServiceRequests(ctx context.Context, in ServiceRequestInput, diff *difftable.Writer) (*Report, error) {
	p := m.newPhase("service-requests")

	if err := RequireFile(in.ServiceRequests); err != nil {
		return p.report, err
	}
	f, err := p.read(in.ServiceRequests)
	if err != nil {
		return p.report, err
	}
	if err := f.RequireColumns(domain.ColID); err != nil {
		return p.report, err
	}

	checks := []enumcheck.Input{{Schema: domain.ServiceRequestFields, File: f}}
	set := newActivitySet()
	if !in.DeferActivities {
		set, err = p.loadActivities(in.Activities)
		if err != nil {
			return p.report, err
		}
		checks = append(checks, set.inputs...)
	}
	if err := p.checkEnums(ctx, checks...); err != nil {
		return p.report, err
	}
	p.checkSurrogates(ctx, m.opts.AffectedUserSurrogate, m.opts.AssignedToSurrogate)

	report, err := run(ctx, p, "Service requests", f.Records, recordKey, func(ctx context.Context, rec records.Record) error {
		ref, created, err := p.createWorkItem(ctx, domain.ServiceRequestFields, rec, diff)
		if err != nil || in.DeferActivities {
			return err
		}
		if !created {
			set.skipMigratedParent(p, rec.Get(domain.ColID))
			return nil
		}
		return p.createChildren(ctx, set, rec.Get(domain.ColID), ref)
	})
	if err == nil && !in.DeferActivities {
		set.reportOrphans(p)
	}
	return report, err
}

// createWorkItem creates the work item for rec together with its user
// relationships and records the mapping. A record whose legacy id is
// already in the Diff Table is skipped.
func (p *phase) createWorkItem(ctx context.Context, fs domain.FieldSet, rec records.Record, diff *difftable.Writer) (target.ObjectRef, bool, error) {
	oldID := rec.Get(domain.ColID)
	if oldID == "" {
		return target.ObjectRef{}, false, fmt.Errorf("row %d: missing %s", rec.Row, domain.ColID)
	}
	if prev, ok := diff.Table().Lookup(oldID); ok {
		p.skip(logrus.Fields{"old_id": oldID, "new_id": prev.CurrentID}, "already in diff table, skipping")
		return target.ObjectRef{}, false, nil
	}

	affected := p.resolveUser(ctx, rec.Get(domain.ColAffectedUser), p.m.opts.AffectedUserSurrogate, oldID, domain.ColAffectedUser)
	assigned := p.resolveUser(ctx, rec.Get(domain.ColAssignedTo), p.m.opts.AssignedToSurrogate, oldID, domain.ColAssignedTo)

	ref, err := p.createInTx(ctx, fs.Class, p.fields(fs, rec, oldID), func(tx target.Tx, ref target.ObjectRef) error {
		if affected.OK() {
			if err := tx.Relate(ctx, domain.RelAffectedUser, ref, affected.User); err != nil {
				return err
			}
		}
		if assigned.OK() {
			if err := tx.Relate(ctx, domain.RelAssignedTo, ref, assigned.User); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return target.ObjectRef{}, false, fmt.Errorf("failed to create %s %s: %w", fs.Kind, oldID, err)
	}
	p.report.Created++

	if err := diff.Append(domain.DiffEntry{PreviousID: oldID, CurrentID: ref.ID, CurrentRef: ref.UUID}); err != nil {
		return ref, true, fmt.Errorf("%s was created as %s but not recorded: %w", oldID, ref.ID, err)
	}

	p.log.WithFields(logrus.Fields{
		"old_id": oldID,
		"new_id": ref.ID,
	}).Info("created work item")
	return ref, true, nil
}

// createInTx creates an object and its relationships in one transaction.
func (p *phase) createInTx(ctx context.Context, class string, fields target.Fields, link func(target.Tx, target.ObjectRef) error) (target.ObjectRef, error) {
	tx, err := p.m.sys.Begin(ctx)
	if err != nil {
		return target.ObjectRef{}, err
	}
	defer tx.Rollback()

	ref, err := tx.Create(ctx, class, fields)
	if err != nil {
		return target.ObjectRef{}, err
	}
	if err := link(tx, ref); err != nil {
		return target.ObjectRef{}, err
	}
	if err := tx.Commit(); err != nil {
		return target.ObjectRef{}, err
	}
	return ref, nil
}

// fields builds the field mapping for rec. Malformed optional values are
// dropped by coercion; the legacy id is included only when preserving ids.
func (p *phase) fields(fs domain.FieldSet, rec records.Record, oldID string) target.Fields {
	fields := target.Fields(coerce.Apply(rec.Values, fs).Fields())
	if p.m.opts.PreserveIDs && oldID != "" {
		fields[domain.ColID] = oldID
	}
	return fields
}

func recordKey(rec records.Record) string {
	if id := rec.Get(domain.ColID); id != "" {
		return id
	}
	return fmt.Sprintf("row %d", rec.Row)
}
