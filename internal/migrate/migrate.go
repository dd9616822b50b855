// Package migrate runs the import phases that move legacy work items into
// the target system. Phases run strictly one record at a time and talk to
// each other only through the Diff Table file.
package migrate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/lherron/itsmig/internal/bulk"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/enumcheck"
	"github.com/lherron/itsmig/internal/records"
	"github.com/lherron/itsmig/internal/target"
	"github.com/lherron/itsmig/internal/users"
)

// Options configures a Migrator.
type Options struct {
	// AffectedUserSurrogate and AssignedToSurrogate are the display names
	// used when a referenced user cannot be found.
	AffectedUserSurrogate string
	AssignedToSurrogate   string

	// PreserveIDs passes legacy identifiers to the target as the new
	// object's Id. Otherwise the target generates one.
	PreserveIDs bool

	// ContinueOnError keeps a phase running after a record fails. The
	// phase still reports every failure and returns an error.
	ContinueOnError bool

	// AttachmentsMaxMB skips larger attachment files (0 = no limit).
	AttachmentsMaxMB int64

	// Records controls how input files are decoded.
	Records records.Options

	ShowProgress bool
	Progress     io.Writer
}

// Migrator runs import phases against a target system.
type Migrator struct {
	sys  target.System
	log  logrus.FieldLogger
	opts Options
}

// New creates a Migrator.
func New(sys target.System, log logrus.FieldLogger, opts Options) *Migrator {
	return &Migrator{sys: sys, log: log, opts: opts}
}

// phase carries the per-phase state: its report, logger and user cache.
type phase struct {
	m        *Migrator
	log      logrus.FieldLogger
	report   *Report
	resolver *users.Resolver
}

func (m *Migrator) newPhase(name string) *phase {
	log := m.log.WithField("phase", name)
	return &phase{
		m:        m,
		log:      log,
		report:   &Report{Phase: name},
		resolver: users.NewResolver(m.sys, log),
	}
}

// warn logs a recoverable problem and counts it.
func (p *phase) warn(fields logrus.Fields, msg string) {
	p.report.Warnings++
	p.log.WithFields(fields).Warn(msg)
}

// skip is warn for a record that is not imported.
func (p *phase) skip(fields logrus.Fields, msg string) {
	p.report.Skipped++
	p.warn(fields, msg)
}

// run executes fn for every item and folds the outcome into the report.
func run[T any](ctx context.Context, p *phase, label string, items []T, key func(T) string, fn func(context.Context, T) error) (*Report, error) {
	op := &bulk.Operation{
		Label:           label,
		ContinueOnError: p.m.opts.ContinueOnError,
		ShowProgress:    p.m.opts.ShowProgress,
		Progress:        p.m.opts.Progress,
	}
	res := bulk.Execute(ctx, op, items, key, func(ctx context.Context, item T) error {
		err := fn(ctx, item)
		if err != nil {
			p.log.WithField("item", key(item)).WithError(err).Error("record failed")
		}
		return err
	})
	p.report.record(res)
	return p.report, p.report.Err()
}

// resolveUser resolves name and counts the outcome.
func (p *phase) resolveUser(ctx context.Context, name, surrogate, entity, role string) users.Resolution {
	res := p.resolver.Resolve(ctx, name, surrogate, entity, role)
	switch res.Outcome {
	case users.Surrogate:
		p.report.Surrogates++
	case users.Ambiguous, users.Unresolved:
		p.report.Warnings++
	}
	return res
}

// checkSurrogates warns up front about surrogates that cannot be used.
func (p *phase) checkSurrogates(ctx context.Context, names ...string) {
	for _, name := range names {
		if _, ok := p.resolver.Check(ctx, name); !ok {
			p.warn(logrus.Fields{"surrogate": name},
				"surrogate user does not resolve to exactly one user; unmatched users will be left unset")
		}
	}
}

// read loads an input file. Reader warnings are logged, not fatal.
func (p *phase) read(path string) (*records.File, error) {
	f, err := records.ReadFile(path, p.m.opts.Records)
	if err != nil {
		return nil, err
	}
	for _, w := range f.Warnings {
		p.log.WithFields(logrus.Fields{"file": path, "row": w.Row}).Warn(w.Message)
	}
	p.log.WithFields(logrus.Fields{"file": path, "records": len(f.Records)}).Debug("read input")
	return f, nil
}

// checkEnums validates inputs against the target catalog.
func (p *phase) checkEnums(ctx context.Context, inputs ...enumcheck.Input) error {
	catalog, err := enumcheck.LoadCatalog(ctx, p.m.sys)
	if err != nil {
		return err
	}
	return enumcheck.Check(catalog, p.log, inputs...)
}

// CheckEnums is the standalone validation phase. Every file is read and
// checked before anything is reported; paths may be empty to skip a kind.
func (m *Migrator) CheckEnums(ctx context.Context, inputs map[domain.Kind]string) error {
	p := m.newPhase("check-enums")

	var checks []enumcheck.Input
	for _, kind := range []domain.Kind{
		domain.KindIncident,
		domain.KindServiceRequest,
		domain.KindManualActivity,
		domain.KindReviewActivity,
		domain.KindParallelActivity,
	} {
		path := inputs[kind]
		if path == "" {
			continue
		}
		if err := RequireFile(path); err != nil {
			return err
		}
		f, err := p.read(path)
		if err != nil {
			return err
		}
		schema, _ := domain.FieldSetFor(kind)
		checks = append(checks, enumcheck.Input{Schema: schema, File: f})
	}
	if len(checks) == 0 {
		return fmt.Errorf("no input files given")
	}

	if err := p.checkEnums(ctx, checks...); err != nil {
		return err
	}
	p.log.WithField("files", len(checks)).Info("all enumeration values found in the target catalog")
	return nil
}

// RequireFile fails when path is missing or a directory.
func RequireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input file %s is a directory", path)
	}
	return nil
}

// RequireDir fails unless path is an existing directory.
func RequireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("attachment root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("attachment root %s is not a directory", path)
	}
	return nil
}
