package migrate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lherron/itsmig/internal/coerce"
	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/records"
	"github.com/lherron/itsmig/internal/target"
)

// relatedColumns are tried in order; the first non-empty one names the
// parent work item and its kind.
var relatedColumns = []struct {
	column string
	kind   domain.Kind
	class  string
}{
	{domain.ColRelatedIncident, domain.KindIncident, domain.ClassIncident},
	{domain.ColRelatedServiceRequest, domain.KindServiceRequest, domain.ClassServiceRequest},
}

// ImportActionLogs attaches each activity log entry to the work item it
// belongs to. Each entry is committed as a projection of the existing
// work item plus the new log object.
func (m *Migrator) ImportActionLogs(ctx context.Context, input string, diff *difftable.Table) (*Report, error) {
	p := m.newPhase("action-logs")

	if err := RequireFile(input); err != nil {
		return p.report, err
	}
	f, err := p.read(input)
	if err != nil {
		return p.report, err
	}
	if err := f.RequireColumns(domain.ColLogType, domain.ColComment); err != nil {
		return p.report, err
	}
	if !f.HasColumn(domain.ColRelatedIncident) && !f.HasColumn(domain.ColRelatedServiceRequest) {
		return p.report, fmt.Errorf("%s: missing required column: %s or %s",
			input, domain.ColRelatedIncident, domain.ColRelatedServiceRequest)
	}

	return run(ctx, p, "Action logs", f.Records, func(rec records.Record) string {
		return fmt.Sprintf("row %d", rec.Row)
	}, func(ctx context.Context, rec records.Record) error {
		return p.importLogEntry(ctx, rec, diff)
	})
}

func (p *phase) importLogEntry(ctx context.Context, rec records.Record, diff *difftable.Table) error {
	fields := logrus.Fields{"row": rec.Row}

	var oldID string
	var kind domain.Kind
	var class string
	for _, rc := range relatedColumns {
		if v := rec.Get(rc.column); v != "" {
			oldID, kind, class = v, rc.kind, rc.class
			break
		}
	}
	if oldID == "" {
		p.skip(fields, "log entry has no related work item, skipping")
		return nil
	}
	fields["old_id"] = oldID

	entry, err := logEntry(rec)
	if err != nil {
		fields["log_type"] = rec.Get(domain.ColLogType)
		p.skip(fields, "unknown log type, skipping")
		return nil
	}

	mapped, ok := diff.Lookup(oldID)
	if !ok {
		p.skip(fields, "work item not in diff table, skipping log entry")
		return nil
	}

	parent := target.ObjectRef{UUID: mapped.CurrentRef, ID: mapped.CurrentID, Class: class}
	children, err := p.m.sys.CommitProjection(ctx, target.Projection{
		Parent: parent,
		Children: []target.NewObject{{
			Class:        entry.Class(),
			Relationship: entry.Relationship(kind),
			Fields:       entry.Fields(uuid.NewString()),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", entry.LogType(), mapped.CurrentID, err)
	}
	p.report.Created += len(children)

	fields["new_id"] = mapped.CurrentID
	fields["log_type"] = entry.LogType()
	p.log.WithFields(fields).Info("added log entry")
	return nil
}

// logEntry builds the typed log entry for rec. Malformed dates and flags
// are left unset.
func logEntry(rec records.Record) (domain.LogEntry, error) {
	logType, err := domain.ValidateLogType(rec.Get(domain.ColLogType))
	if err != nil {
		return nil, err
	}

	enteredDate, _ := coerce.Time(rec.Get(domain.ColEnteredDate))
	switch logType {
	case domain.LogTypeAnalystComment:
		private, _ := coerce.Bool(rec.Get(domain.ColIsPrivate))
		return domain.AnalystComment{
			EnteredBy:   rec.Get(domain.ColEnteredBy),
			EnteredDate: enteredDate,
			Comment:     rec.Values[domain.ColComment],
			IsPrivate:   private,
		}, nil
	default:
		return domain.UserComment{
			EnteredBy:   rec.Get(domain.ColEnteredBy),
			EnteredDate: enteredDate,
			Comment:     rec.Values[domain.ColComment],
		}, nil
	}
}
