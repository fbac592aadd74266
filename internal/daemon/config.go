// Package daemon manages the backlogd runtime lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/backlogd/backlogd/internal/infra/conflict"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Engine    EngineConfig    `toml:"engine"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// EngineConfig controls backlog policy.
type EngineConfig struct {
	// StaleAfter is a duration string ("4h", "90m"). Empty disables
	// stale flagging.
	StaleAfter string `toml:"stale_after"`

	// ConflictGranularity is "resource" or "module". Module adds
	// advisory coarse-overlap warnings on top of the strict check.
	ConflictGranularity string `toml:"conflict_granularity"`

	// ArchiveListLimit caps how many archived tasks list endpoints
	// return by default.
	ArchiveListLimit int `toml:"archive_list_limit"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := backlogdHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7171,
			CORSOrigins: []string{"*"},
		},
		Engine: EngineConfig{
			StaleAfter:          "4h",
			ConflictGranularity: string(conflict.GranularityResource),
			ArchiveListLimit:    50,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, "backlogd.log"),
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from ~/.backlogd/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(backlogdHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.StaleAfter(); err != nil {
		return cfg, err
	}
	if _, err := cfg.Granularity(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.backlogd/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(backlogdHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// StaleAfter parses the configured stale threshold.
func (c Config) StaleAfter() (time.Duration, error) {
	if c.Engine.StaleAfter == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Engine.StaleAfter)
	if err != nil {
		return 0, fmt.Errorf("parse stale_after %q: %w", c.Engine.StaleAfter, err)
	}
	return d, nil
}

// Granularity parses the configured conflict granularity.
func (c Config) Granularity() (conflict.Granularity, error) {
	switch conflict.Granularity(c.Engine.ConflictGranularity) {
	case conflict.GranularityResource, "":
		return conflict.GranularityResource, nil
	case conflict.GranularityModule:
		return conflict.GranularityModule, nil
	default:
		return "", fmt.Errorf("unknown conflict_granularity %q", c.Engine.ConflictGranularity)
	}
}

// backlogdHome returns the backlogd data directory.
func backlogdHome() string {
	if env := os.Getenv("BACKLOGD_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".backlogd")
}

// BacklogdHome is exported for use by other packages.
func BacklogdHome() string {
	return backlogdHome()
}
