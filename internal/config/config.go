// Package config loads the guard configuration from YAML, falling back
// to compiled defaults when no file is present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all settings the guard needs. It is built once at
// startup and passed in explicitly; nothing reads it lazily at decision
// time.
type Config struct {
	// AuditLog is the JSONL audit log location.
	AuditLog string `yaml:"audit_log"`
	// LogAllowed also records ALLOWED events, not just BLOCKED ones.
	LogAllowed bool `yaml:"log_allowed"`
	// Rules optionally points at a YAML file with extra patterns
	// merged over the builtin table.
	Rules string `yaml:"rules"`
	// ExceptionsDB is the SQLite database of approved path overrides.
	ExceptionsDB string `yaml:"exceptions_db"`
}

// Dir returns the secretguard configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "secretguard")
	}
	return filepath.Join(home, ".secretguard")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the compiled-in configuration.
func Default() Config {
	dir := Dir()
	return Config{
		AuditLog:     filepath.Join(dir, "audit.log"),
		LogAllowed:   false,
		Rules:        filepath.Join(dir, "rules.yaml"),
		ExceptionsDB: filepath.Join(dir, "exceptions.db"),
	}
}

// Load reads configuration from the given path, or from DefaultPath
// when path is empty. A missing file yields the defaults; a present but
// unparseable file is an error. Fields left empty in the file keep
// their default values.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	def := Default()
	cfg.AuditLog = expandHome(cfg.AuditLog)
	if cfg.AuditLog == "" {
		cfg.AuditLog = def.AuditLog
	}
	cfg.ExceptionsDB = expandHome(cfg.ExceptionsDB)
	if cfg.ExceptionsDB == "" {
		cfg.ExceptionsDB = def.ExceptionsDB
	}
	cfg.Rules = expandHome(cfg.Rules)

	return cfg, nil
}

// expandHome resolves a leading "~/" against the user home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
