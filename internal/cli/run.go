package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/difftable"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/migrate"
	"github.com/lherron/itsmig/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every migration phase from a manifest",
	Long: `Run executes the phases in order: check-enums, incidents, service
requests (with their activities unless defer_activities is set), action
logs, deferred activities and attachments. Work item and activity phases
whose input is not named in the manifest are skipped; the attachment root
is required and may be an empty directory. Every named path is checked
before anything is written. The run stops at the first failing phase.

Relative paths in the manifest are resolved against the manifest's directory.

Example manifest:

  diff_table: out/diff.csv
  surrogates:
    affected_user: Migration Affected User
    assigned_to: Migration Analyst
  preserve_ids: true
  inputs:
    incidents: export/incidents.csv
    service_requests: export/service_requests.csv
    manual_activities: export/manual.csv
    review_activities: export/review.csv
    parallel_activities: export/parallel.csv
    action_logs: export/action_logs.csv
    attachments: export/attachments`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runRun),
}

var (
	runManifestPath string
	runJSON         bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runManifestPath, "manifest", "", "YAML manifest naming inputs, Diff Table and surrogates")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the phase reports as JSON")
	runCmd.MarkFlagRequired("manifest")
}

// runManifest describes a complete migration.
type runManifest struct {
	DiffTable  string `yaml:"diff_table" validate:"required"`
	Surrogates struct {
		AffectedUser string `yaml:"affected_user" validate:"required"`
		AssignedTo   string `yaml:"assigned_to" validate:"required"`
	} `yaml:"surrogates"`
	PreserveIDs     bool `yaml:"preserve_ids"`
	ContinueOnError bool `yaml:"continue_on_error"`
	DeferActivities bool `yaml:"defer_activities"`
	Inputs          struct {
		Incidents          string `yaml:"incidents" validate:"required_without=ServiceRequests"`
		ServiceRequests    string `yaml:"service_requests"`
		ManualActivities   string `yaml:"manual_activities"`
		ReviewActivities   string `yaml:"review_activities"`
		ParallelActivities string `yaml:"parallel_activities"`
		ActionLogs         string `yaml:"action_logs"`
		Attachments        string `yaml:"attachments" validate:"required"`
	} `yaml:"inputs"`
}

var manifestValidate = validator.New()

func loadManifest(path string) (*runManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var man runManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&man); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if err := manifestValidate.Struct(&man); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{
		&man.DiffTable,
		&man.Inputs.Incidents,
		&man.Inputs.ServiceRequests,
		&man.Inputs.ManualActivities,
		&man.Inputs.ReviewActivities,
		&man.Inputs.ParallelActivities,
		&man.Inputs.ActionLogs,
		&man.Inputs.Attachments,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	return &man, nil
}

func (man *runManifest) options() migrate.Options {
	return migrate.Options{
		AffectedUserSurrogate: man.Surrogates.AffectedUser,
		AssignedToSurrogate:   man.Surrogates.AssignedTo,
		PreserveIDs:           man.PreserveIDs,
		ContinueOnError:       man.ContinueOnError,
	}
}

func (man *runManifest) activities() migrate.ActivityInput {
	return migrate.ActivityInput{
		Manual:   man.Inputs.ManualActivities,
		Review:   man.Inputs.ReviewActivities,
		Parallel: man.Inputs.ParallelActivities,
	}
}

// checkPaths fails on the first named input that is missing or of the
// wrong type, and when the Diff Table's directory does not exist.
func (man *runManifest) checkPaths() error {
	for _, p := range []string{
		man.Inputs.Incidents,
		man.Inputs.ServiceRequests,
		man.Inputs.ManualActivities,
		man.Inputs.ReviewActivities,
		man.Inputs.ParallelActivities,
		man.Inputs.ActionLogs,
	} {
		if p == "" {
			continue
		}
		if err := migrate.RequireFile(p); err != nil {
			return err
		}
	}
	if err := migrate.RequireDir(man.Inputs.Attachments); err != nil {
		return err
	}

	dir := filepath.Dir(man.DiffTable)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("diff table directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("diff table directory %s is not a directory", dir)
	}
	return nil
}

func (man *runManifest) hasActivities() bool {
	in := man.activities()
	return in.Manual != "" || in.Review != "" || in.Parallel != ""
}

func runRun(app *appctx.App, cmd *cobra.Command, args []string) error {
	man, err := loadManifest(runManifestPath)
	if err != nil {
		return exitError(2, err)
	}

	m := newMigrator(app, cmd, man.options())
	out := cmd.OutOrStdout()
	if runJSON {
		out = io.Discard
	}

	reports, err := runPipeline(cmd.Context(), m, man, out)
	if runJSON {
		if encErr := render.JSON(cmd.OutOrStdout(), reports); encErr != nil && err == nil {
			err = encErr
		}
	} else if len(reports) > 1 {
		fmt.Fprintln(out)
		if tabErr := printReportTable(out, reports); tabErr != nil && err == nil {
			err = tabErr
		}
	}
	if err != nil {
		code := 1
		if n := len(reports); n > 0 && reports[n-1].ExitCode() != 0 {
			code = reports[n-1].ExitCode()
		}
		return exitError(code, err)
	}
	return nil
}

// runPipeline runs the phases named by man in order and returns the
// report of every phase that started.
func runPipeline(ctx context.Context, m *migrate.Migrator, man *runManifest, out io.Writer) ([]*migrate.Report, error) {
	var reports []*migrate.Report
	step := func(report *migrate.Report, err error) error {
		if report != nil {
			reports = append(reports, report)
			if err == nil || report.Records > 0 {
				report.Print(out)
			}
		}
		return err
	}

	if err := man.checkPaths(); err != nil {
		return reports, err
	}

	checks := map[domain.Kind]string{
		domain.KindIncident:         man.Inputs.Incidents,
		domain.KindServiceRequest:   man.Inputs.ServiceRequests,
		domain.KindManualActivity:   man.Inputs.ManualActivities,
		domain.KindReviewActivity:   man.Inputs.ReviewActivities,
		domain.KindParallelActivity: man.Inputs.ParallelActivities,
	}
	if err := m.CheckEnums(ctx, checks); err != nil {
		return reports, err
	}

	err := withDiffWriter(man.DiffTable, func(w *difftable.Writer) error {
		if man.Inputs.Incidents != "" {
			if err := step(m.ImportIncidents(ctx, man.Inputs.Incidents, w)); err != nil {
				return err
			}
		}
		if man.Inputs.ServiceRequests != "" {
			in := migrate.ServiceRequestInput{
				ServiceRequests: man.Inputs.ServiceRequests,
				Activities:      man.activities(),
				DeferActivities: man.DeferActivities,
			}
			if err := step(m.ImportServiceRequests(ctx, in, w)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return reports, err
	}

	// Later phases see only what was written to the file.
	table, err := difftable.Load(man.DiffTable)
	if err != nil {
		return reports, err
	}

	if man.Inputs.ActionLogs != "" {
		if err := step(m.ImportActionLogs(ctx, man.Inputs.ActionLogs, table)); err != nil {
			return reports, err
		}
	}
	if man.DeferActivities && man.hasActivities() {
		if err := step(m.ImportActivities(ctx, man.activities(), table)); err != nil {
			return reports, err
		}
	}
	if err := step(m.ImportAttachments(ctx, man.Inputs.Attachments, table)); err != nil {
		return reports, err
	}
	return reports, nil
}

func printReportTable(w io.Writer, reports []*migrate.Report) error {
	headers := []string{"PHASE", "RECORDS", "CREATED", "SKIPPED", "WARNINGS", "SURROGATES", "FAILED"}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.Phase,
			strconv.Itoa(r.Records),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Warnings),
			strconv.Itoa(r.Surrogates),
			strconv.Itoa(r.Failed),
		})
	}
	return render.NewRenderer(w, render.FormatTable).Table(headers, rows)
}
