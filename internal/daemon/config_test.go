package daemon

import (
	"testing"
	"time"

	"github.com/backlogd/backlogd/internal/infra/conflict"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7171 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7171)
	}
	if cfg.Engine.StaleAfter != "4h" {
		t.Errorf("Engine.StaleAfter = %q, want %q", cfg.Engine.StaleAfter, "4h")
	}
	if cfg.Engine.ConflictGranularity != string(conflict.GranularityResource) {
		t.Errorf("Engine.ConflictGranularity = %q, want %q",
			cfg.Engine.ConflictGranularity, conflict.GranularityResource)
	}
}

func TestConfig_StaleAfter(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"4h", 4 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"", 0, false}, // disabled
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Engine.StaleAfter = tt.input
			got, err := cfg.StaleAfter()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("StaleAfter(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("StaleAfter(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("StaleAfter(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfig_Granularity(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Engine.ConflictGranularity = "module"
	if g, err := cfg.Granularity(); err != nil || g != conflict.GranularityModule {
		t.Errorf("Granularity() = %v, %v, want module", g, err)
	}

	cfg.Engine.ConflictGranularity = ""
	if g, err := cfg.Granularity(); err != nil || g != conflict.GranularityResource {
		t.Errorf("Granularity() = %v, %v, want resource default", g, err)
	}

	cfg.Engine.ConflictGranularity = "file"
	if _, err := cfg.Granularity(); err == nil {
		t.Error("Granularity(\"file\") succeeded, want error")
	}
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	t.Setenv("BACKLOGD_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.Engine.StaleAfter = "2h"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", got.API.Port)
	}
	if got.Engine.StaleAfter != "2h" {
		t.Errorf("Engine.StaleAfter = %q, want %q", got.Engine.StaleAfter, "2h")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BACKLOGD_HOME", t.TempDir())

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default %d", got.API.Port, DefaultConfig().API.Port)
	}
}
