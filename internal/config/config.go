// Package config loads the collector's settings from environment
// variables and an optional YAML file, in the two layers named in
// spec.md §6: the environment table is the low-level knob set, the YAML
// file is the declarative section list. Environment variables always win
// over the file so an operator can override a deployed config.yaml
// without editing it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig names the storage backend and, for the sqlite driver, the
// path of the single store file that holds every month's partition tables
// (SPEC_FULL.md §6.5).
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	LogsPath string `yaml:"logs_path"`
}

// knownDrivers is the full set spec.md's database.driver accepts at the
// config-validation layer, per SPEC_FULL.md §6.3. Only "sqlite" is
// actually wired to a runtime implementation; selecting "meilisearch"
// passes validation but fails at startup with "driver not implemented".
var knownDrivers = map[string]bool{"sqlite": true, "meilisearch": true}

// Config is the fully resolved configuration for one process.
type Config struct {
	Debug        bool
	LogDump      bool
	SQLDump      bool
	SQLWrite     bool
	BindingIP    string
	BindingPort  int
	BatchSize    int
	BatchTimeout time.Duration
	Database     DatabaseConfig
}

// fileConfig mirrors the on-disk YAML shape.
type fileConfig struct {
	Database DatabaseConfig `yaml:"database"`
}

func defaults() *Config {
	return &Config{
		BindingIP:    "0.0.0.0",
		BindingPort:  5140,
		BatchSize:    1000,
		BatchTimeout: 5 * time.Second,
		Database: DatabaseConfig{
			Driver:   "sqlite",
			LogsPath: "./data/logs.sqlite3",
		},
	}
}

// Load resolves the full configuration: defaults, overlaid by the
// discovered YAML file (if any), overlaid by environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("config: no .env file found")
	}

	cfg := defaults()

	explicit := os.Getenv("AIOSYSLOGD_CONFIG") != ""
	path := os.Getenv("AIOSYSLOGD_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if fc.Database.Driver != "" {
			cfg.Database.Driver = fc.Database.Driver
		}
		if fc.Database.LogsPath != "" {
			cfg.Database.LogsPath = fc.Database.LogsPath
		}
	case os.IsNotExist(err) && !explicit:
		log.Debug().Str("path", path).Msg("config: no config file found, using defaults")
	case os.IsNotExist(err):
		return nil, fmt.Errorf("config: configured file %s does not exist", path)
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(cfg)

	if !knownDrivers[cfg.Database.Driver] {
		return nil, fmt.Errorf("config: unknown database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver == "meilisearch" {
		return nil, fmt.Errorf("config: database driver %q is not implemented", cfg.Database.Driver)
	}

	return cfg, nil
}

// applyEnv overlays the environment table from spec.md §6 onto cfg.
// Booleans accept "True" (the spec's literal), plus "true" and "1" as a
// superset — never a subset, per SPEC_FULL.md §6.2.
func applyEnv(cfg *Config) {
	if v, ok := lookupBool("DEBUG"); ok {
		cfg.Debug = v
	}
	if v, ok := lookupBool("LOG_DUMP"); ok {
		cfg.LogDump = v
	}
	if v, ok := lookupBool("SQL_DUMP"); ok {
		cfg.SQLDump = v
	}
	if v, ok := lookupBool("SQL_WRITE"); ok {
		cfg.SQLWrite = v
	}
	if v := os.Getenv("BINDING_IP"); v != "" {
		cfg.BindingIP = v
	}
	if v, ok := lookupInt("BINDING_PORT"); ok {
		cfg.BindingPort = v
	}
	if v, ok := lookupInt("BATCH_SIZE"); ok {
		cfg.BatchSize = v
	}
	if v, ok := lookupInt("BATCH_TIMEOUT"); ok {
		cfg.BatchTimeout = time.Duration(v) * time.Second
	}
}

func lookupBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, true
	default:
		return false, true
	}
}

func lookupInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("config: ignoring unparseable integer env var")
		return 0, false
	}
	return n, true
}
