package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AIOSYSLOGD_CONFIG", "DEBUG", "LOG_DUMP", "SQL_DUMP", "SQL_WRITE",
		"BINDING_IP", "BINDING_PORT", "BATCH_SIZE", "BATCH_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithNoFileOrEnv(t *testing.T) {
	clearEnv(t)
	oldwd, _ := os.Getwd()
	_ = os.Chdir(t.TempDir())
	defer os.Chdir(oldwd)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.BindingIP)
	require.Equal(t, 5140, cfg.BindingPort)
	require.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadExplicitMissingFileIsFatal(t *testing.T) {
	clearEnv(t)
	t.Setenv("AIOSYSLOGD_CONFIG", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadParsesYAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "database:\n  driver: sqlite\n  logs_path: /var/lib/syslogd/logs.sqlite3\n")
	t.Setenv("AIOSYSLOGD_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/var/lib/syslogd/logs.sqlite3", cfg.Database.LogsPath)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "database:\n  driver: postgres\n")
	t.Setenv("AIOSYSLOGD_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnimplementedMeilisearchDriver(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "database:\n  driver: meilisearch\n")
	t.Setenv("AIOSYSLOGD_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "database:\n  driver: sqlite\n  logs_path: /file/path.sqlite3\n")
	t.Setenv("AIOSYSLOGD_CONFIG", path)
	t.Setenv("BINDING_PORT", "9000")
	t.Setenv("BATCH_TIMEOUT", "30")
	t.Setenv("DEBUG", "True")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.BindingPort)
	require.Equal(t, 30*time.Second, cfg.BatchTimeout)
	require.True(t, cfg.Debug)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
