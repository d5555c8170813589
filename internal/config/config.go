// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Store   StoreConfig
	Session SessionConfig
	Share   ShareConfig
	Enrich  EnrichConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataPath    string // base directory for the database and share inbox
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level   string
	NoColor bool // set by the NO_COLOR convention
}

// StoreConfig selects and locates the item store.
type StoreConfig struct {
	Backend string // sqlite (default) or badger
	Path    string // database file (sqlite) or directory (badger)
}

// SessionConfig holds the signed-in user for this process.
// An empty UserID means no session: captures fail with Unauthenticated
// and shares wait for sign-in.
type SessionConfig struct {
	UserID string
}

// ShareConfig holds the share inbox configuration.
type ShareConfig struct {
	InboxPath   string        // directory watched for share payload files
	SettleDelay time.Duration // quiet period before a new file is read (default: 200ms)
}

// EnrichConfig controls fetching page titles for links saved without one.
type EnrichConfig struct {
	Enabled bool
	Timeout time.Duration // per-page fetch timeout (default: 10s)
}

// Overrides carries command-line flag values. Empty fields fall through to
// the environment, then the .env file, then defaults.
type Overrides struct {
	EnvFile       string
	Environment   string
	LogLevel      string
	DataPath      string
	Backend       string
	StorePath     string
	UserID        string
	InboxPath     string
	SettleDelay   string
	Enrich        string
	EnrichTimeout string
}

// Load builds configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(o Overrides) (*Config, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// Missing .env is fine.
	_ = loadEnvFile(envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(o.Environment, "LINKSTASH_ENV", "development"),
			DataPath:    getConfigValue(o.DataPath, "LINKSTASH_DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level:   getConfigValue(o.LogLevel, "LINKSTASH_LOG_LEVEL", "info"),
			NoColor: os.Getenv("NO_COLOR") != "",
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getConfigValue(o.Backend, "LINKSTASH_STORE", BackendSQLite)),
			Path:    getConfigValue(o.StorePath, "LINKSTASH_STORE_PATH", ""),
		},
		Session: SessionConfig{
			UserID: strings.TrimSpace(getConfigValue(o.UserID, "LINKSTASH_USER", "")),
		},
		Share: ShareConfig{
			InboxPath: getConfigValue(o.InboxPath, "LINKSTASH_SHARE_INBOX", ""),
		},
	}

	settleStr := getConfigValue(o.SettleDelay, "LINKSTASH_SHARE_SETTLE", "200ms")
	settle, err := time.ParseDuration(settleStr)
	if err != nil {
		return nil, fmt.Errorf("invalid share settle delay %q: %w", settleStr, err)
	}
	cfg.Share.SettleDelay = settle

	enrichStr := getConfigValue(o.Enrich, "LINKSTASH_ENRICH", "false")
	enabled, err := strconv.ParseBool(enrichStr)
	if err != nil {
		return nil, fmt.Errorf("invalid enrich setting %q: %w", enrichStr, err)
	}
	cfg.Enrich.Enabled = enabled

	timeoutStr := getConfigValue(o.EnrichTimeout, "LINKSTASH_ENRICH_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid enrich timeout %q: %w", timeoutStr, err)
	}
	cfg.Enrich.Timeout = timeout

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Store.Backend {
	case BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("invalid store backend: %q (must be sqlite or badger)", c.Store.Backend)
	}

	if c.Store.Path == "" {
		return errors.New("store path cannot be empty after expansion")
	}

	if c.Share.SettleDelay < 0 {
		return fmt.Errorf("share settle delay must not be negative, got %s", c.Share.SettleDelay)
	}

	if c.Enrich.Enabled && c.Enrich.Timeout <= 0 {
		return fmt.Errorf("enrich timeout must be positive, got %s", c.Enrich.Timeout)
	}

	return nil
}

// expandPaths resolves ~ and relative paths and fills derived defaults:
// {data}/linkstash.db or {data}/badger for the store, {data}/inbox for shares.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	data, err := expandPath(c.App.DataPath, filepath.Join(homeDir, ".linkstash"))
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	c.App.DataPath = data

	defaultStore := filepath.Join(data, "linkstash.db")
	if c.Store.Backend == BackendBadger {
		defaultStore = filepath.Join(data, "badger")
	}
	if c.Store.Path, err = expandPath(c.Store.Path, defaultStore); err != nil {
		return fmt.Errorf("invalid store path: %w", err)
	}

	if c.Share.InboxPath, err = expandPath(c.Share.InboxPath, filepath.Join(data, "inbox")); err != nil {
		return fmt.Errorf("invalid share inbox path: %w", err)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as given.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
