package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DBPath           string `yaml:"db_path" env:"ITSMIG_DB_PATH" validate:"required"`
	AttachDir        string `yaml:"attach_dir" env:"ITSMIG_ATTACH_DIR" validate:"required"`
	AttachmentsMaxMB int64  `yaml:"attachments_max_mb" env:"ITSMIG_ATTACHMENTS_MAX_MB" validate:"min=0"`
	LogLevel         string `yaml:"log_level" env:"ITSMIG_LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	LogFormat        string `yaml:"log_format" env:"ITSMIG_LOG_FORMAT" validate:"oneof=text json"`
	InputEncoding    string `yaml:"input_encoding" env:"ITSMIG_INPUT_ENCODING" validate:"oneof=auto utf-8 utf-16le utf-16be windows-1252 cp1252"`
	XLSXSheet        string `yaml:"xlsx_sheet" env:"ITSMIG_XLSX_SHEET"`
}

const localDBPath = ".itsmig/target.db"

var validate = validator.New()

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/itsmig/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		AttachmentsMaxMB: 50,
		LogLevel:         "info",
		LogFormat:        "text",
		InputEncoding:    "auto",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional
	_ = loadYAMLConfig(cfg)

	// Override with environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}
	if dbPath := getEnvOrFile("ITSMIG_DB_PATH", "ITSMIG_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	// Set defaults if not configured
	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(localDBPath); err == nil {
			cfg.DBPath = localDBPath
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "itsmig", "target.db")
		}
	}

	if cfg.AttachDir == "" {
		cfg.AttachDir = DefaultAttachDir(cfg.DBPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultAttachDir is the attachment directory used when none is
// configured: "attachments" next to the database.
func DefaultAttachDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "attachments")
}

// Validate checks field values against their allowed ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// loadYAMLConfig loads configuration from ~/.config/itsmig/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "itsmig", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Clean paths for reliable comparison
	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		// Get parent directory
		parent := filepath.Dir(dir)

		// Stop if we've reached the filesystem root
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
