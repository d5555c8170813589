package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development", DataPath: "/data"},
		Logger: LoggerConfig{Level: "info"},
		Store:  StoreConfig{Backend: BackendSQLite, Path: "/data/linkstash.db"},
		Share:  ShareConfig{InboxPath: "/data/inbox", SettleDelay: 200 * time.Millisecond},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Environments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }, "invalid log level"},
		{"bad backend", func(c *Config) { c.Store.Backend = "postgres" }, "invalid store backend"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "store path"},
		{"negative settle", func(c *Config) { c.Share.SettleDelay = -time.Second }, "settle delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(Overrides{EnvFile: filepath.Join(dir, "missing.env"), DataPath: dir})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "linkstash.db"), cfg.Store.Path)
	assert.Equal(t, filepath.Join(dir, "inbox"), cfg.Share.InboxPath)
	assert.Equal(t, 200*time.Millisecond, cfg.Share.SettleDelay)
	assert.Empty(t, cfg.Session.UserID)
	assert.False(t, cfg.Enrich.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Enrich.Timeout)
}

func TestLoad_BadgerDefaultPath(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(Overrides{EnvFile: filepath.Join(dir, "missing.env"), DataPath: dir, Backend: "BADGER"})
	require.NoError(t, err)

	assert.Equal(t, BackendBadger, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "badger"), cfg.Store.Path)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"# comment\nLINKSTASH_LOG_LEVEL=debug\nLINKSTASH_USER=\"user-from-file\"\n"), 0o600))

	t.Setenv("LINKSTASH_USER", "user-from-env")

	cfg, err := Load(Overrides{EnvFile: envFile, DataPath: dir, SettleDelay: "1s"})
	require.NoError(t, err)

	// .env fills what the environment leaves unset.
	assert.Equal(t, "debug", cfg.Logger.Level)
	// Environment beats .env.
	assert.Equal(t, "user-from-env", cfg.Session.UserID)
	// Flags beat everything.
	assert.Equal(t, time.Second, cfg.Share.SettleDelay)

	cfg, err = Load(Overrides{EnvFile: envFile, DataPath: dir, UserID: "user-from-flag"})
	require.NoError(t, err)
	assert.Equal(t, "user-from-flag", cfg.Session.UserID)
}

func TestLoad_InvalidSettleDelay(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(Overrides{EnvFile: filepath.Join(dir, "missing.env"), DataPath: dir, SettleDelay: "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settle delay")
}

func TestLoad_Enrich(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "missing.env")

	cfg, err := Load(Overrides{EnvFile: envFile, DataPath: dir, Enrich: "true", EnrichTimeout: "3s"})
	require.NoError(t, err)
	assert.True(t, cfg.Enrich.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Enrich.Timeout)

	_, err = Load(Overrides{EnvFile: envFile, DataPath: dir, Enrich: "sometimes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrich setting")

	_, err = Load(Overrides{EnvFile: envFile, DataPath: dir, Enrich: "1", EnrichTimeout: "0s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrich timeout")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/stash", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "stash"), got)

	got, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)

	got, err = expandPath("/a/../b/", "")
	require.NoError(t, err)
	assert.Equal(t, "/b", got)
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT_A_PAIR\n"), 0o600))

	err := loadEnvFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
