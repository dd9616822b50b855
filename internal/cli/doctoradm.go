package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/itsmig/internal/cli/appctx"
	"github.com/lherron/itsmig/internal/db"
	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/render"
)

var doctorAdmCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check target database health and configuration",
	Long:  `Performs health checks on the target database, its schema and catalog, identifier sequences and stored attachments.`,
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.Options{NeedsDB: false}, runDoctorAdm),
}

var (
	doctorAdmJSON    bool
	doctorAdmFix     bool
	doctorAdmVerbose bool
)

type checkResultAdm struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type doctorReportAdm struct {
	Version       string           `json:"version"`
	DBPath        string           `json:"db_path"`
	Checks        []checkResultAdm `json:"checks"`
	Fixes         []string         `json:"fixes,omitempty"`
	Warnings      int              `json:"warnings"`
	Errors        int              `json:"errors"`
	OverallStatus string           `json:"overall_status"`
}

func init() {
	rootAdmCmd.AddCommand(doctorAdmCmd)
	doctorAdmCmd.Flags().BoolVar(&doctorAdmJSON, "json", false, "Output JSON")
	doctorAdmCmd.Flags().BoolVar(&doctorAdmFix, "fix", false, "Repair identifier sequence drift")
	doctorAdmCmd.Flags().BoolVar(&doctorAdmVerbose, "verbose", false, "Verbose output")
}

func runDoctorAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	cfg := app.Config
	report := &doctorReportAdm{
		Version:       Version,
		DBPath:        cfg.DBPath,
		Checks:        []checkResultAdm{},
		OverallStatus: "ok",
	}

	report.Checks = append(report.Checks, checkDatabaseFileAdm(cfg.DBPath)...)

	var database *db.DB
	if !hasError(report.Checks) {
		var err error
		database, err = db.Open(cfg.DBPath)
		if err != nil {
			report.Checks = append(report.Checks, checkResultAdm{
				Name:    "database_open",
				Status:  "error",
				Message: fmt.Sprintf("Failed to open database: %v", err),
			})
		} else {
			defer database.Close()
			report.Checks = append(report.Checks, checkDatabasePragmasAdm(database)...)
			report.Checks = append(report.Checks, checkSchemaAdm(database)...)
			report.Checks = append(report.Checks, checkCatalogAdm(database)...)
			report.Checks = append(report.Checks, checkDataIntegrityAdm(database)...)
			report.Checks = append(report.Checks, checkSequenceDriftAdm(database)...)
			report.Checks = append(report.Checks, checkAttachmentsAdm(database, cfg.AttachDir)...)
			report.Checks = append(report.Checks, checkObjectCountsAdm(database)...)
		}
	}

	for _, check := range report.Checks {
		if check.Status == "warning" {
			report.Warnings++
		} else if check.Status == "error" {
			report.Errors++
			report.OverallStatus = "error"
		}
	}
	if report.Warnings > 0 && report.OverallStatus == "ok" {
		report.OverallStatus = "warning"
	}

	if doctorAdmFix && database != nil {
		report.Fixes = applyFixesAdm(database)
	}

	if doctorAdmJSON {
		if err := render.JSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		printHumanReportAdm(cmd, report)
	}

	if report.Errors > 0 {
		return exitError(1, fmt.Errorf("doctor found %d error(s)", report.Errors))
	}
	return nil
}

func hasError(checks []checkResultAdm) bool {
	for _, c := range checks {
		if c.Status == "error" {
			return true
		}
	}
	return false
}

func checkDatabaseFileAdm(dbPath string) []checkResultAdm {
	var results []checkResultAdm

	info, err := os.Stat(dbPath)
	if err != nil {
		results = append(results, checkResultAdm{
			Name:    "db_file_exists",
			Status:  "error",
			Message: fmt.Sprintf("Database file not found: %s", dbPath),
			Details: []string{"Run 'itsmigadm init' to create it"},
		})
		return results
	}

	results = append(results, checkResultAdm{
		Name:    "db_file_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Database file: %s (%.1f MB)", dbPath, float64(info.Size())/(1024*1024)),
	})

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0)
	if err != nil {
		results = append(results, checkResultAdm{
			Name:    "db_file_permissions",
			Status:  "error",
			Message: fmt.Sprintf("Database file not writable: %v", err),
		})
	} else {
		f.Close()
		results = append(results, checkResultAdm{
			Name:    "db_file_permissions",
			Status:  "ok",
			Message: "Database file is readable and writable",
		})
	}

	return results
}

func checkDatabasePragmasAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	var journalMode string
	database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if journalMode == "wal" {
		results = append(results, checkResultAdm{Name: "wal_mode", Status: "ok", Message: "WAL mode enabled"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "wal_mode",
			Status:  "warning",
			Message: fmt.Sprintf("WAL mode not enabled (current: %s)", journalMode),
		})
	}

	var foreignKeys int
	database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	if foreignKeys == 1 {
		results = append(results, checkResultAdm{Name: "foreign_keys", Status: "ok", Message: "Foreign keys enabled"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "foreign_keys",
			Status:  "error",
			Message: "Foreign keys not enabled",
			Details: []string{"Relationships to missing objects would not be rejected"},
		})
	}

	var integrityCheck string
	database.QueryRow("PRAGMA integrity_check").Scan(&integrityCheck)
	if integrityCheck == "ok" {
		results = append(results, checkResultAdm{Name: "integrity_check", Status: "ok", Message: "Database integrity check passed"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "integrity_check",
			Status:  "error",
			Message: fmt.Sprintf("Database integrity check failed: %s", integrityCheck),
			Details: []string{"Database may be corrupted", "Restore from backup recommended"},
		})
	}

	return results
}

func checkSchemaAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	requiredTables := []string{
		"classes", "relationship_classes", "enum_values", "class_enum_fields",
		"id_sequences", "objects", "relationships", "attachments", "event_log",
	}
	var missingTables []string
	for _, table := range requiredTables {
		var count int
		err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil || count == 0 {
			missingTables = append(missingTables, table)
		}
	}

	if len(missingTables) == 0 {
		results = append(results, checkResultAdm{
			Name:    "schema_tables",
			Status:  "ok",
			Message: fmt.Sprintf("All required tables present (%d/%d)", len(requiredTables), len(requiredTables)),
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "schema_tables",
			Status:  "error",
			Message: fmt.Sprintf("Missing tables: %v", missingTables),
			Details: []string{"Run 'itsmigadm migrate' to create missing tables"},
		})
	}

	_, pending, err := database.MigrationStatus()
	switch {
	case err != nil:
		results = append(results, checkResultAdm{
			Name:    "migrations",
			Status:  "error",
			Message: fmt.Sprintf("Failed to read migration status: %v", err),
		})
	case len(pending) > 0:
		results = append(results, checkResultAdm{
			Name:    "migrations",
			Status:  "error",
			Message: fmt.Sprintf("%d pending migration(s)", len(pending)),
			Details: pending,
		})
	default:
		results = append(results, checkResultAdm{Name: "migrations", Status: "ok", Message: "All migrations applied"})
	}

	return results
}

func checkCatalogAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	var enumValues, lists int
	database.QueryRow("SELECT COUNT(*), COUNT(DISTINCT list_name) FROM enum_values").Scan(&enumValues, &lists)
	if enumValues == 0 {
		results = append(results, checkResultAdm{
			Name:    "enum_catalog",
			Status:  "warning",
			Message: "Enumeration catalog is empty",
			Details: []string{"Every enumeration value will fail check-enums", "Load one with 'itsmigadm seed'"},
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "enum_catalog",
			Status:  "ok",
			Message: fmt.Sprintf("%d enumeration value(s) in %d list(s)", enumValues, lists),
		})
	}

	var usersCount int
	database.QueryRow("SELECT COUNT(*) FROM objects WHERE class_name = ?", domain.ClassUser).Scan(&usersCount)
	if usersCount == 0 {
		results = append(results, checkResultAdm{
			Name:    "users",
			Status:  "warning",
			Message: "No users in the target",
			Details: []string{"Surrogate users cannot be resolved", "Load users with 'itsmigadm seed'"},
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "users",
			Status:  "ok",
			Message: fmt.Sprintf("%d user(s)", usersCount),
		})
	}

	return results
}

func checkDataIntegrityAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	var dangling int
	database.QueryRow(`
		SELECT COUNT(*) FROM relationships
		WHERE source_uuid NOT IN (SELECT uuid FROM objects)
		   OR target_uuid NOT IN (SELECT uuid FROM objects)
	`).Scan(&dangling)
	if dangling == 0 {
		results = append(results, checkResultAdm{Name: "dangling_relationships", Status: "ok", Message: "No dangling relationships"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "dangling_relationships",
			Status:  "error",
			Message: fmt.Sprintf("%d relationships reference missing objects", dangling),
		})
	}

	// Activities, log entries and attachments are only reachable through
	// their parent work item.
	var unlinked int
	database.QueryRow(`
		SELECT COUNT(*) FROM objects o
		WHERE o.class_name IN (?, ?, ?, ?, ?, ?)
		  AND NOT EXISTS (SELECT 1 FROM relationships r WHERE r.target_uuid = o.uuid)
	`,
		domain.ClassManualActivity, domain.ClassReviewActivity, domain.ClassParallelActivity,
		domain.ClassUserCommentLog, domain.ClassAnalystComment, domain.ClassFileAttachment,
	).Scan(&unlinked)
	if unlinked == 0 {
		results = append(results, checkResultAdm{Name: "unlinked_children", Status: "ok", Message: "Every child object has a parent"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "unlinked_children",
			Status:  "warning",
			Message: fmt.Sprintf("%d activities, log entries or attachments without a parent work item", unlinked),
		})
	}

	return results
}

func checkSequenceDriftAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	prefixes, err := db.SequencePrefixes(database.DB)
	if err == nil {
		var drifts []db.SequenceDrift
		drifts, err = db.SequenceDrifts(database, prefixes)
		if err == nil && len(drifts) > 0 {
			details := make([]string, 0, len(drifts))
			for _, drift := range drifts {
				details = append(details, fmt.Sprintf("%s: sequence=%d, max_id=%d", drift.Prefix, drift.SeqValue, drift.MaxID))
			}
			return append(results, checkResultAdm{
				Name:    "sequence_drift",
				Status:  "warning",
				Message: fmt.Sprintf("Identifier sequences behind preserved ids (%d prefix(es))", len(drifts)),
				Details: append(details, "Use --fix to advance the sequences"),
			})
		}
	}
	if err != nil {
		return append(results, checkResultAdm{
			Name:    "sequence_drift",
			Status:  "error",
			Message: fmt.Sprintf("Failed to check sequence drift: %v", err),
		})
	}

	return append(results, checkResultAdm{
		Name:    "sequence_drift",
		Status:  "ok",
		Message: "All identifier sequences are in sync",
	})
}

func checkAttachmentsAdm(database *db.DB, attachDir string) []checkResultAdm {
	var results []checkResultAdm

	info, err := os.Stat(attachDir)
	if err != nil || !info.IsDir() {
		results = append(results, checkResultAdm{
			Name:    "attach_dir_exists",
			Status:  "error",
			Message: fmt.Sprintf("Attachment directory not found: %s", attachDir),
		})
		return results
	}
	results = append(results, checkResultAdm{
		Name:    "attach_dir_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Attachment directory: %s", attachDir),
	})

	var count int
	var totalSize sql.NullInt64
	database.QueryRow("SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM attachments").Scan(&count, &totalSize)
	if count > 0 {
		results = append(results, checkResultAdm{
			Name:    "attachments_count",
			Status:  "ok",
			Message: fmt.Sprintf("%d attachments (%.1f MB total)", count, float64(totalSize.Int64)/(1024*1024)),
		})
	} else {
		results = append(results, checkResultAdm{Name: "attachments_count", Status: "ok", Message: "No attachments"})
	}

	// Content without a row is left behind by an interrupted import.
	objectsDir := filepath.Join(attachDir, "objects")
	var orphaned []string
	if entries, err := os.ReadDir(objectsDir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			var exists int
			database.QueryRow("SELECT COUNT(*) FROM attachments WHERE object_uuid = ?", entry.Name()).Scan(&exists)
			if exists == 0 {
				orphaned = append(orphaned, entry.Name())
			}
		}
	}

	if len(orphaned) == 0 {
		results = append(results, checkResultAdm{Name: "orphaned_files", Status: "ok", Message: "No orphaned attachment directories"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "orphaned_files",
			Status:  "warning",
			Message: fmt.Sprintf("%d orphaned attachment directories", len(orphaned)),
			Details: orphaned,
		})
	}

	return results
}

func checkObjectCountsAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	rows, err := database.Query("SELECT class_name, COUNT(*) FROM objects GROUP BY class_name ORDER BY class_name")
	if err == nil {
		var details []string
		total := 0
		for rows.Next() {
			var class string
			var n int
			if rows.Scan(&class, &n) == nil {
				details = append(details, fmt.Sprintf("%s: %d", class, n))
				total += n
			}
		}
		rows.Close()
		results = append(results, checkResultAdm{
			Name:    "object_counts",
			Status:  "ok",
			Message: fmt.Sprintf("%d objects in %d classes", total, len(details)),
			Details: details,
		})
	}

	var pageCount, pageSize int64
	database.QueryRow("PRAGMA page_count").Scan(&pageCount)
	database.QueryRow("PRAGMA page_size").Scan(&pageSize)
	results = append(results, checkResultAdm{
		Name:    "database_size",
		Status:  "ok",
		Message: fmt.Sprintf("Database size: %.1f MB (%d pages)", float64(pageCount*pageSize)/(1024*1024), pageCount),
	})

	return results
}

func applyFixesAdm(database *db.DB) []string {
	prefixes, err := db.SequencePrefixes(database.DB)
	if err != nil {
		return []string{fmt.Sprintf("Sequence repair failed: %v", err)}
	}
	drifts, err := db.FixSequenceDrifts(database, prefixes)
	switch {
	case err != nil:
		return []string{fmt.Sprintf("Sequence repair failed: %v", err)}
	case len(drifts) > 0:
		return []string{fmt.Sprintf("Advanced identifier sequences for %d prefix(es)", len(drifts))}
	default:
		return []string{"No sequence drift detected"}
	}
}

func printHumanReportAdm(cmd *cobra.Command, report *doctorReportAdm) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "itsmigadm doctor %s\n\n", report.Version)
	fmt.Fprintf(out, "Database: %s\n\n", report.DBPath)

	order := []string{"Database File", "Database Health", "Schema", "Catalog", "Data Integrity", "Sequences", "Attachments", "Contents"}
	categories := map[string][]checkResultAdm{}
	for _, check := range report.Checks {
		var category string
		switch check.Name {
		case "db_file_exists", "db_file_permissions", "database_open":
			category = "Database File"
		case "wal_mode", "foreign_keys", "integrity_check":
			category = "Database Health"
		case "schema_tables", "migrations":
			category = "Schema"
		case "enum_catalog", "users":
			category = "Catalog"
		case "dangling_relationships", "unlinked_children":
			category = "Data Integrity"
		case "sequence_drift":
			category = "Sequences"
		case "attach_dir_exists", "attachments_count", "orphaned_files":
			category = "Attachments"
		default:
			category = "Contents"
		}
		categories[category] = append(categories[category], check)
	}

	for _, category := range order {
		checks := categories[category]
		if len(checks) == 0 {
			continue
		}

		fmt.Fprintf(out, "%s\n", category)
		for _, check := range checks {
			icon := "✓"
			if check.Status == "warning" {
				icon = "⚠"
			} else if check.Status == "error" {
				icon = "✗"
			}

			fmt.Fprintf(out, "  %s %s\n", icon, check.Message)
			if doctorAdmVerbose && len(check.Details) > 0 {
				for _, detail := range check.Details {
					fmt.Fprintf(out, "      %s\n", detail)
				}
			}
		}
		fmt.Fprintln(out)
	}

	if len(report.Fixes) > 0 {
		fmt.Fprintln(out, "--fix results")
		fmt.Fprintln(out, strings.Join(report.Fixes, "\n"))
		fmt.Fprintln(out)
	}

	if report.Errors > 0 {
		fmt.Fprintf(out, "Summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	} else if report.Warnings > 0 {
		fmt.Fprintf(out, "Summary: %d warning(s)\n", report.Warnings)
	} else {
		fmt.Fprintf(out, "Summary: All checks passed ✓\n")
	}

	if report.Warnings > 0 || report.Errors > 0 {
		fmt.Fprintf(out, "\nRun with --verbose for detailed information\n")
	}
}
