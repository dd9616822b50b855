package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/enumcheck"
	"github.com/lherron/itsmig/internal/records"
	"github.com/lherron/itsmig/internal/target"
)

// ActivityInput names the sub-activity files. Empty paths are treated as
// files without records.
type ActivityInput struct {
	Manual   string
	Review   string
	Parallel string
}

// activitySet indexes sub-activity records by their Parent column.
type activitySet struct {
	inputs   []enumcheck.Input
	manual   map[string][]records.Record
	review   map[string][]records.Record
	parallel map[string][]records.Record
	// order lists parent ids by first appearance.
	order   []string
	visited map[string]bool
}

func newActivitySet() *activitySet {
	return &activitySet{
		manual:   map[string][]records.Record{},
		review:   map[string][]records.Record{},
		parallel: map[string][]records.Record{},
		visited:  map[string]bool{},
	}
}

func (p *phase) loadActivities(in ActivityInput) (*activitySet, error) {
	set := newActivitySet()
	seen := map[string]bool{}

	for _, src := range []struct {
		path   string
		schema domain.FieldSet
		into   *map[string][]records.Record
	}{
		{in.Manual, domain.ManualActivityFields, &set.manual},
		{in.Review, domain.ReviewActivityFields, &set.review},
		{in.Parallel, domain.ParallelActivityFields, &set.parallel},
	} {
		if src.path == "" {
			continue
		}
		if err := RequireFile(src.path); err != nil {
			return nil, err
		}
		f, err := p.read(src.path)
		if err != nil {
			return nil, err
		}
		if err := f.RequireColumns(domain.ColParent); err != nil {
			return nil, err
		}
		set.inputs = append(set.inputs, enumcheck.Input{Schema: src.schema, File: f})

		for _, rec := range f.Records {
			parent := rec.Get(domain.ColParent)
			if parent == "" {
				p.skip(logrus.Fields{"kind": src.schema.Kind, "file": src.path, "row": rec.Row},
					"activity has no parent, skipping")
				continue
			}
			if !seen[parent] {
				seen[parent] = true
				set.order = append(set.order, parent)
			}
		}
		*src.into = f.GroupBy(domain.ColParent)
	}
	return set, nil
}

// topLevelParents returns the parents that are not themselves parallel
// activities of the set.
func (s *activitySet) topLevelParents() []string {
	nested := map[string]bool{}
	for _, recs := range s.parallel {
		for _, rec := range recs {
			if id := rec.Get(domain.ColID); id != "" {
				nested[id] = true
			}
		}
	}
	var out []string
	for _, parent := range s.order {
		if !nested[parent] {
			out = append(out, parent)
		}
	}
	return out
}

func (s *activitySet) count(parent string) int {
	return len(s.manual[parent]) + len(s.review[parent]) + len(s.parallel[parent])
}

type activityGroup struct {
	kind domain.Kind
	recs map[string][]records.Record
}

func (s *activitySet) groups() []activityGroup {
	return []activityGroup{
		{domain.KindManualActivity, s.manual},
		{domain.KindReviewActivity, s.review},
		{domain.KindParallelActivity, s.parallel},
	}
}

// skipMigratedParent reports every activity below a work item that was
// skipped as already migrated, parallel grandchildren included. None of
// them is created by this phase.
func (s *activitySet) skipMigratedParent(p *phase, parent string) {
	s.visited[parent] = true
	for _, group := range s.groups() {
		for _, rec := range group.recs[parent] {
			p.skip(logrus.Fields{"kind": group.kind, "old_id": recordKey(rec), "parent": parent},
				"parent already migrated, skipping activity (run 'itsmig import activities' for any still missing)")
			if group.kind != domain.KindParallelActivity {
				continue
			}
			if id := rec.Get(domain.ColID); id != "" && !s.visited[id] {
				s.skipMigratedParent(p, id)
			}
		}
	}
}

// reportOrphans warns about activities whose parent was never processed.
func (s *activitySet) reportOrphans(p *phase) {
	for _, group := range s.groups() {
		parents := make([]string, 0, len(group.recs))
		for parent := range group.recs {
			if !s.visited[parent] {
				parents = append(parents, parent)
			}
		}
		sort.Strings(parents)
		for _, parent := range parents {
			for _, rec := range group.recs[parent] {
				p.skip(logrus.Fields{"kind": group.kind, "old_id": recordKey(rec), "parent": parent},
					"activity parent was not migrated, skipping")
			}
		}
	}
}

// ImportActivities creates sub-activities for work items migrated by an
// earlier phase. Parents are looked up in the Diff Table; activities of
// unknown parents are skipped with a warning.
func (m *Migrator) ImportActivities(ctx context.Context, in ActivityInput, diff *difftable.Table) (*Report, error) {
	p := m.newPhase("activities")

	set, err := p.loadActivities(in)
	if err != nil {
		return p.report, err
	}
	if len(set.inputs) == 0 {
		return p.report, fmt.Errorf("no activity files given")
	}
	if err := p.checkEnums(ctx, set.inputs...); err != nil {
		return p.report, err
	}
	p.checkSurrogates(ctx, m.opts.AssignedToSurrogate)

	report, err := run(ctx, p, "Activities", set.topLevelParents(), func(s string) string { return s },
		func(ctx context.Context, parentID string) error {
			fields := logrus.Fields{"parent": parentID, "activities": set.count(parentID)}
			entry, ok := diff.Lookup(parentID)
			if !ok {
				set.visited[parentID] = true
				p.skip(fields, "parent not in diff table, skipping its activities")
				return nil
			}
			parent, _, err := m.sys.Get(ctx, entry.CurrentRef)
			if errors.Is(err, target.ErrNotFound) {
				set.visited[parentID] = true
				fields["new_id"] = entry.CurrentID
				p.skip(fields, "parent not found in target, skipping its activities")
				return nil
			}
			if err != nil {
				return err
			}
			return p.createChildren(ctx, set, parentID, parent)
		})
	if err == nil {
		set.reportOrphans(p)
	}
	return report, err
}

// createChildren creates the Manual and Review activities of parent, then
// each Parallel activity with its own Manual activities. Nesting stops at
// that second level.
func (p *phase) createChildren(ctx context.Context, set *activitySet, parentID string, parent target.ObjectRef) error {
	set.visited[parentID] = true

	for _, rec := range set.manual[parentID] {
		if _, err := p.createActivity(ctx, domain.ManualActivityFields, rec, parent); err != nil {
			return err
		}
	}
	for _, rec := range set.review[parentID] {
		if _, err := p.createActivity(ctx, domain.ReviewActivityFields, rec, parent); err != nil {
			return err
		}
	}

	for _, rec := range set.parallel[parentID] {
		pa, err := p.createActivity(ctx, domain.ParallelActivityFields, rec, parent)
		if err != nil {
			return err
		}
		paID := rec.Get(domain.ColID)
		if paID == "" {
			continue
		}
		set.visited[paID] = true

		for _, child := range set.manual[paID] {
			if _, err := p.createActivity(ctx, domain.ManualActivityFields, child, pa); err != nil {
				return err
			}
		}
		for _, child := range set.review[paID] {
			p.skip(logrus.Fields{"old_id": recordKey(child), "parent": paID},
				"review activity under a parallel activity is not supported, skipping")
		}
		for _, child := range set.parallel[paID] {
			p.skip(logrus.Fields{"old_id": recordKey(child), "parent": paID},
				"parallel activity nested in a parallel activity is not supported, skipping")
		}
	}
	return nil
}

// createActivity creates one sub-activity linked to parent. Manual
// activities also get their AssignedTo user.
func (p *phase) createActivity(ctx context.Context, fs domain.FieldSet, rec records.Record, parent target.ObjectRef) (target.ObjectRef, error) {
	oldID := rec.Get(domain.ColID)
	entity := recordKey(rec)

	withAssignee := fs.Kind == domain.KindManualActivity
	var assignee target.ObjectRef
	if withAssignee {
		res := p.resolveUser(ctx, rec.Get(domain.ColAssignedTo), p.m.opts.AssignedToSurrogate, entity, domain.ColAssignedTo)
		withAssignee = res.OK()
		assignee = res.User
	}

	ref, err := p.createInTx(ctx, fs.Class, p.fields(fs, rec, oldID), func(tx target.Tx, ref target.ObjectRef) error {
		if err := tx.Relate(ctx, domain.RelContainsActivity, parent, ref); err != nil {
			return err
		}
		if withAssignee {
			return tx.Relate(ctx, domain.RelAssignedTo, ref, assignee)
		}
		return nil
	})
	if err != nil {
		return target.ObjectRef{}, fmt.Errorf("failed to create %s %s under %s: %w", fs.Kind, entity, parent.ID, err)
	}
	p.report.Created++

	p.log.WithFields(logrus.Fields{
		"old_id": entity,
		"new_id": ref.ID,
		"parent": parent.ID,
	}).Info("created activity")
	return ref, nil
}
