package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindEnvLocal_InCurrentDir(t *testing.T) {
	// Create temp directory structure
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env.local")
	if err := os.WriteFile(envPath, []byte("TEST=value"), 0644); err != nil {
		t.Fatal(err)
	}

	// Change to temp dir
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	if result == "" {
		t.Error("expected to find .env.local in current directory")
	}
}

func TestFindEnvLocal_InParentDir(t *testing.T) {
	// Create temp directory structure: parent/.env.local, parent/child/
	tmpDir := t.TempDir()
	childDir := filepath.Join(tmpDir, "child")
	if err := os.Mkdir(childDir, 0755); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(tmpDir, ".env.local")
	if err := os.WriteFile(envPath, []byte("TEST=parent"), 0644); err != nil {
		t.Fatal(err)
	}

	// Change to child dir
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(childDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	if result == "" {
		t.Error("expected to find .env.local in parent directory")
	}
	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedResolved, _ := filepath.EvalSymlinks(envPath)
	resultResolved, _ := filepath.EvalSymlinks(result)
	if resultResolved != expectedResolved {
		t.Errorf("expected %s, got %s", expectedResolved, resultResolved)
	}
}

func TestFindEnvLocal_InGrandparentDir(t *testing.T) {
	// Create: grandparent/.env.local, grandparent/parent/child/
	tmpDir := t.TempDir()
	parentDir := filepath.Join(tmpDir, "parent")
	childDir := filepath.Join(parentDir, "child")
	if err := os.MkdirAll(childDir, 0755); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(tmpDir, ".env.local")
	if err := os.WriteFile(envPath, []byte("TEST=grandparent"), 0644); err != nil {
		t.Fatal(err)
	}

	// Change to grandchild dir
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(childDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	if result == "" {
		t.Error("expected to find .env.local in grandparent directory")
	}
	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedResolved, _ := filepath.EvalSymlinks(envPath)
	resultResolved, _ := filepath.EvalSymlinks(result)
	if resultResolved != expectedResolved {
		t.Errorf("expected %s, got %s", expectedResolved, resultResolved)
	}
}

func TestFindEnvLocal_ClosestWins(t *testing.T) {
	// Create: grandparent/.env.local, grandparent/parent/.env.local, grandparent/parent/child/
	tmpDir := t.TempDir()
	parentDir := filepath.Join(tmpDir, "parent")
	childDir := filepath.Join(parentDir, "child")
	if err := os.MkdirAll(childDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Create .env.local in both grandparent and parent
	if err := os.WriteFile(filepath.Join(tmpDir, ".env.local"), []byte("TEST=grandparent"), 0644); err != nil {
		t.Fatal(err)
	}
	parentEnvPath := filepath.Join(parentDir, ".env.local")
	if err := os.WriteFile(parentEnvPath, []byte("TEST=parent"), 0644); err != nil {
		t.Fatal(err)
	}

	// Change to child dir
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(childDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedResolved, _ := filepath.EvalSymlinks(parentEnvPath)
	resultResolved, _ := filepath.EvalSymlinks(result)
	if resultResolved != expectedResolved {
		t.Errorf("expected closest .env.local (%s), got %s", expectedResolved, resultResolved)
	}
}

func TestFindEnvLocal_NotFound(t *testing.T) {
	// Create temp directory with no .env.local
	tmpDir := t.TempDir()

	// Change to temp dir
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	if result != "" {
		t.Errorf("expected empty string when no .env.local found, got %s", result)
	}
}

// isolate points HOME and cwd at fresh temp dirs so no real config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"ITSMIG_DB_PATH", "ITSMIG_DB_PATH_FILE", "ITSMIG_ATTACH_DIR", "ITSMIG_ATTACHMENTS_MAX_MB",
		"ITSMIG_LOG_LEVEL", "ITSMIG_LOG_FORMAT", "ITSMIG_INPUT_ENCODING", "ITSMIG_XLSX_SHEET",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	oldCwd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldCwd) })
	if err := os.Chdir(home); err != nil {
		t.Fatal(err)
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantDB := filepath.Join(home, ".local", "share", "itsmig", "target.db")
	if cfg.DBPath != wantDB {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, wantDB)
	}
	if cfg.AttachDir != filepath.Join(filepath.Dir(wantDB), "attachments") {
		t.Errorf("AttachDir = %q", cfg.AttachDir)
	}
	if cfg.AttachmentsMaxMB != 50 || cfg.LogLevel != "info" || cfg.LogFormat != "text" || cfg.InputEncoding != "auto" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)

	yamlDir := filepath.Join(home, ".config", "itsmig")
	if err := os.MkdirAll(yamlDir, 0755); err != nil {
		t.Fatal(err)
	}
	yamlContent := "db_path: /yaml/target.db\nlog_level: debug\nlog_format: json\nxlsx_sheet: Export\n"
	if err := os.WriteFile(filepath.Join(yamlDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".env.local"), []byte("ITSMIG_LOG_LEVEL=warn\nITSMIG_ATTACHMENTS_MAX_MB=5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("ITSMIG_LOG_LEVEL")
		os.Unsetenv("ITSMIG_ATTACHMENTS_MAX_MB")
	})
	t.Setenv("ITSMIG_INPUT_ENCODING", "windows-1252")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DBPath != "/yaml/target.db" {
		t.Errorf("DBPath = %q, want yaml value", cfg.DBPath)
	}
	if cfg.LogFormat != "json" || cfg.XLSXSheet != "Export" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || cfg.AttachmentsMaxMB != 5 {
		t.Errorf(".env.local should override yaml: %+v", cfg)
	}
	if cfg.InputEncoding != "windows-1252" {
		t.Errorf("environment should win, got %q", cfg.InputEncoding)
	}
}

func TestLoad_DBPathFile(t *testing.T) {
	home := isolate(t)

	secret := filepath.Join(home, "db_path")
	if err := os.WriteFile(secret, []byte("/secret/target.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ITSMIG_DB_PATH_FILE", secret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBPath != "/secret/target.db" {
		t.Errorf("DBPath = %q, want value read from file", cfg.DBPath)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"log format", "ITSMIG_LOG_FORMAT", "xml"},
		{"log level", "ITSMIG_LOG_LEVEL", "verbose"},
		{"encoding", "ITSMIG_INPUT_ENCODING", "ebcdic"},
		{"negative size", "ITSMIG_ATTACHMENTS_MAX_MB", "-1"},
		{"non-numeric size", "ITSMIG_ATTACHMENTS_MAX_MB", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}
