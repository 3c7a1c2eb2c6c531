package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.AuthBurst.WindowSeconds != 60 {
		t.Errorf("WindowSeconds = %d, want 60", cfg.AuthBurst.WindowSeconds)
	}
	if cfg.AuthBurst.DistinctAccountThreshold != 5 {
		t.Errorf("DistinctAccountThreshold = %d, want 5", cfg.AuthBurst.DistinctAccountThreshold)
	}
	if cfg.AuthBurst.MaxEventsTracked != 1000 {
		t.Errorf("MaxEventsTracked = %d, want 1000", cfg.AuthBurst.MaxEventsTracked)
	}
	if cfg.AuthChain.MaxChainLength != 4 {
		t.Errorf("MaxChainLength = %d, want 4", cfg.AuthChain.MaxChainLength)
	}
	if cfg.AuthChain.MaxGraphNodes != 50000 {
		t.Errorf("MaxGraphNodes = %d, want 50000", cfg.AuthChain.MaxGraphNodes)
	}
	if cfg.Enrichment.RefreshIntervalSeconds != 300 {
		t.Errorf("RefreshIntervalSeconds = %d, want 300", cfg.Enrichment.RefreshIntervalSeconds)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.PrivilegeEscalation.Enabled || !cfg.KeytabSmuggling.Enabled {
		t.Error("detections disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AuthBurst.WindowSeconds != 60 {
		t.Errorf("WindowSeconds = %d, want default 60", cfg.AuthBurst.WindowSeconds)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	path := writeConfig(t, `
auth_burst:
  window_seconds: 120
auth_chain:
  max_chain_length: 6
server:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AuthBurst.WindowSeconds != 120 {
		t.Errorf("WindowSeconds = %d, want 120", cfg.AuthBurst.WindowSeconds)
	}
	if cfg.AuthChain.MaxChainLength != 6 {
		t.Errorf("MaxChainLength = %d, want 6", cfg.AuthChain.MaxChainLength)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	// Untouched sections keep defaults.
	if cfg.AuthBurst.DistinctAccountThreshold != 5 {
		t.Errorf("DistinctAccountThreshold = %d, want default 5", cfg.AuthBurst.DistinctAccountThreshold)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{"zero window", "auth_burst:\n  window_seconds: 0\n"},
		{"negative chain length", "auth_chain:\n  max_chain_length: -1\n"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"bands not increasing", "privilege_escalation:\n  severity_bands:\n    medium: 0.8\n    high: 0.5\n    critical: 0.9\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("Load() accepted invalid config")
			}
		})
	}
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "auth_burst: [not a map")); err == nil {
		t.Error("Load() accepted malformed YAML")
	}
}

func TestLoad_DatabaseURLFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://sentinel:pw@localhost:5432/sentinel")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.DatabaseURL != "postgres://sentinel:pw@localhost:5432/sentinel" {
		t.Errorf("DatabaseURL = %q, want env override", cfg.Store.DatabaseURL)
	}
}
