package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	DataDir    string           `json:"data_dir"`
	Database   string           `json:"database"`
	VaultDir   string           `json:"vault_dir"`
	Submission SubmissionConfig `json:"submission"`
	Auth       AuthConfig       `json:"auth"`
	Audit      AuditConfig      `json:"audit"`
	Logging    LoggingConfig    `json:"logging"`
	Watcher    WatcherConfig    `json:"watcher"`
}

// SubmissionConfig controls the acceptance rules for exam files
type SubmissionConfig struct {
	MaxFileSizeMB     int      `json:"max_file_size_mb"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// AuthConfig controls the login lockout policy
type AuthConfig struct {
	LockoutThreshold       int `json:"lockout_threshold"`        // Default: 3
	LockoutDurationMinutes int `json:"lockout_duration_minutes"` // Default: 30
}

// AuditConfig locates the append-only audit streams
type AuditConfig struct {
	SubmissionLog string `json:"submission_log"`
	LoginLog      string `json:"login_log"`
}

// LoggingConfig controls application logging behavior
type LoggingConfig struct {
	Level        string `json:"level"`         // "debug", "info", "warn", "error"
	DebugEnabled bool   `json:"debug_enabled"` // Enable debug file logging
	File         string `json:"file"`          // Debug log file path
	MaxSizeMB    int    `json:"max_size_mb"`   // Max file size before rotation
	MaxBackups   int    `json:"max_backups"`   // Number of backup files to keep
}

// WatcherConfig controls the inbox drop-folder automation
type WatcherConfig struct {
	Enabled bool   `json:"enabled"`
	Inbox   string `json:"inbox"`
}

// defaults returns the built-in configuration. Path fields that depend on
// the data directory stay empty here and are filled by resolvePaths.
func defaults() *Config {
	return &Config{
		DataDir: "data",
		Submission: SubmissionConfig{
			MaxFileSizeMB:     5,
			AllowedExtensions: []string{".pdf", ".docx"},
		},
		Auth: AuthConfig{
			LockoutThreshold:       3,
			LockoutDurationMinutes: 30,
		},
		Logging: LoggingConfig{
			Level:        "info",
			DebugEnabled: true,
			MaxSizeMB:    10,
			MaxBackups:   3,
		},
		Watcher: WatcherConfig{
			Enabled: false,
		},
	}
}

// Load reads configuration from file and environment. A missing file is
// created with the defaults so the layout is visible and editable.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Unmarshal over the defaults: fields absent from the file keep
		// their default values.
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Re-apply defaults for fields zeroed by explicit empty values.
		if cfg.DataDir == "" {
			cfg.DataDir = "data"
		}
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = "info"
		}
		if cfg.Logging.MaxSizeMB == 0 {
			cfg.Logging.MaxSizeMB = 10
		}
		if cfg.Logging.MaxBackups == 0 {
			cfg.Logging.MaxBackups = 3
		}
		if cfg.Submission.MaxFileSizeMB == 0 {
			cfg.Submission.MaxFileSizeMB = 5
		}
		if len(cfg.Submission.AllowedExtensions) == 0 {
			cfg.Submission.AllowedExtensions = []string{".pdf", ".docx"}
		}
		if cfg.Auth.LockoutThreshold == 0 {
			cfg.Auth.LockoutThreshold = 3
		}
		if cfg.Auth.LockoutDurationMinutes == 0 {
			cfg.Auth.LockoutDurationMinutes = 30
		}
	} else {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// resolvePaths fills empty path fields relative to the data directory.
func (c *Config) resolvePaths() {
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "examgate.db")
	}
	if c.VaultDir == "" {
		c.VaultDir = filepath.Join(c.DataDir, "vault")
	}
	if c.Audit.SubmissionLog == "" {
		c.Audit.SubmissionLog = filepath.Join(c.DataDir, "audit", "submissions.log")
	}
	if c.Audit.LoginLog == "" {
		c.Audit.LoginLog = filepath.Join(c.DataDir, "audit", "logins.log")
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(c.DataDir, "examgate.log")
	}
	if c.Watcher.Inbox == "" {
		c.Watcher.Inbox = filepath.Join(c.DataDir, "inbox")
	}
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EXAMGATE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("EXAMGATE_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("EXAMGATE_VAULT_DIR"); v != "" {
		c.VaultDir = v
	}
	if v := os.Getenv("EXAMGATE_MAX_FILE_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Submission.MaxFileSizeMB = n
		}
	}
	if v := os.Getenv("EXAMGATE_LOCKOUT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Auth.LockoutThreshold = n
		}
	}
	if v := os.Getenv("EXAMGATE_LOCKOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Auth.LockoutDurationMinutes = n
		}
	}
	if v := os.Getenv("EXAMGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EXAMGATE_DEBUG_ENABLED"); v != "" {
		switch v {
		case "true":
			c.Logging.DebugEnabled = true
		case "false":
			c.Logging.DebugEnabled = false
		}
	}
	if v := os.Getenv("EXAMGATE_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("EXAMGATE_WATCHER_ENABLED"); v != "" {
		switch v {
		case "true":
			c.Watcher.Enabled = true
		case "false":
			c.Watcher.Enabled = false
		}
	}
	if v := os.Getenv("EXAMGATE_INBOX"); v != "" {
		c.Watcher.Inbox = v
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	if c.Submission.MaxFileSizeMB < 1 {
		return fmt.Errorf("max_file_size_mb must be at least 1, got %d", c.Submission.MaxFileSizeMB)
	}
	for _, ext := range c.Submission.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension %q must start with a dot", ext)
		}
	}

	if c.Auth.LockoutThreshold < 1 {
		return fmt.Errorf("lockout_threshold must be at least 1, got %d", c.Auth.LockoutThreshold)
	}
	if c.Auth.LockoutDurationMinutes < 1 {
		return fmt.Errorf("lockout_duration_minutes must be at least 1, got %d", c.Auth.LockoutDurationMinutes)
	}

	if c.Watcher.Enabled && c.Watcher.Inbox == "" {
		return fmt.Errorf("watcher is enabled but no inbox directory is configured")
	}

	return nil
}

// MaxFileSizeBytes converts the configured submission limit to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Submission.MaxFileSizeMB) * 1024 * 1024
}

// LockoutDuration converts the configured lockout window to a duration.
func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.Auth.LockoutDurationMinutes) * time.Minute
}
