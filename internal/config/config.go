// Package config holds the run-scoped configuration for the collector:
// environment-driven application settings plus the JSON configuration
// store describing consumer units and PDF clients.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cpfl/internal/logger"
)

// Config is the environment-driven application configuration.
type Config struct {
	// ConfigPath is the default location of the JSON config store.
	ConfigPath string

	// Directories used by the PDF processing pipeline.
	InboxDir   string
	ArchiveDir string
	OutputDir  string

	// Logging configuration.
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load builds the application configuration from environment variables,
// falling back to defaults. godotenv is loaded by main before this runs.
func Load() (*Config, error) {
	cfg := &Config{
		ConfigPath:    getEnv("CPFL_CONFIG", "config/config.json"),
		InboxDir:      getEnv("CPFL_INBOX_DIR", "data/incoming"),
		ArchiveDir:    getEnv("CPFL_ARCHIVE_DIR", "data/archive"),
		OutputDir:     getEnv("CPFL_OUTPUT_DIR", "data/output"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
	}
	return cfg, nil
}

// JSONOutputDir is where per-invoice JSON mirrors are written.
func (c *Config) JSONOutputDir() string {
	return filepath.Join(c.OutputDir, "json")
}

// MasterTablePath is the canonical master table CSV.
func (c *Config) MasterTablePath() string {
	return filepath.Join(c.OutputDir, "cpfl_faturas_master.csv")
}

// MasterExcelPath is the spreadsheet mirror of the master table.
func (c *Config) MasterExcelPath() string {
	return filepath.Join(c.OutputDir, "cpfl_faturas_master.xlsx")
}

// LoggerConfig returns a logger configuration from the main config
func (c *Config) LoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

var (
	slugInvalid = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify renders a client or UC name safe for directory and column use.
func Slugify(value string) string {
	normalized := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	normalized = slugDashes.ReplaceAllString(normalized, "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return "uc"
	}
	return normalized
}
