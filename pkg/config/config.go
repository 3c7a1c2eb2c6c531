// Package config loads the thresholds YAML file into a typed AppConfig.
// Missing files or sections fall back to defaults; invalid values are
// rejected at load time.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// BurstConfig tunes Detection B (auth burst).
type BurstConfig struct {
	WindowSeconds            int `yaml:"window_seconds" validate:"min=1"`
	DistinctAccountThreshold int `yaml:"distinct_account_threshold" validate:"min=1"`
	MaxEventsTracked         int `yaml:"max_events_tracked" validate:"min=1"`
}

// ChainConfig tunes Detection C (auth chain).
type ChainConfig struct {
	MaxChainLength int `yaml:"max_chain_length" validate:"min=1"`
	MaxGraphNodes  int `yaml:"max_graph_nodes" validate:"min=1"`
}

// SeverityBands maps privilege deltas to severities for Detection A.
// Bands must be increasing: delta < Medium → low, < High → medium,
// < Critical → high, otherwise critical.
type SeverityBands struct {
	Medium   float64 `yaml:"medium" validate:"gt=0,lt=1"`
	High     float64 `yaml:"high" validate:"gt=0,lt=1"`
	Critical float64 `yaml:"critical" validate:"gt=0,lte=1"`
}

// PrivEscConfig tunes Detection A (privilege escalation).
type PrivEscConfig struct {
	Enabled bool          `yaml:"enabled"`
	Bands   SeverityBands `yaml:"severity_bands"`
}

// KeytabSmugglingConfig tunes Detection D.
type KeytabSmugglingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EnrichmentConfig tunes the enrichment cache manager.
type EnrichmentConfig struct {
	RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds" validate:"min=1"`
	VaultFile              string `yaml:"vault_file"`
	CriticalAccountsFile   string `yaml:"critical_accounts_file"`
}

// ServerConfig tunes the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`
}

// StoreConfig selects and tunes persistence. An empty DatabaseURL selects
// the in-memory stores with the edge journal for recovery.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url"`
	JournalPath string `yaml:"journal_path"`
}

// NotifyConfig tunes outbound alert publishing.
type NotifyConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// AppConfig is the full application configuration.
type AppConfig struct {
	AuthBurst           BurstConfig           `yaml:"auth_burst"`
	AuthChain           ChainConfig           `yaml:"auth_chain"`
	PrivilegeEscalation PrivEscConfig         `yaml:"privilege_escalation"`
	KeytabSmuggling     KeytabSmugglingConfig `yaml:"keytab_smuggling"`
	Enrichment          EnrichmentConfig      `yaml:"enrichment"`
	Server              ServerConfig          `yaml:"server"`
	Store               StoreConfig           `yaml:"store"`
	Notify              NotifyConfig          `yaml:"notify"`
	LogLevel            string                `yaml:"log_level"`
}

var validate = validator.New()

// Default returns the configuration used when no file is present.
func Default() AppConfig {
	return AppConfig{
		AuthBurst: BurstConfig{
			WindowSeconds:            60,
			DistinctAccountThreshold: 5,
			MaxEventsTracked:         1000,
		},
		AuthChain: ChainConfig{
			MaxChainLength: 4,
			MaxGraphNodes:  50000,
		},
		PrivilegeEscalation: PrivEscConfig{
			Enabled: true,
			Bands:   SeverityBands{Medium: 0.2, High: 0.5, Critical: 0.8},
		},
		KeytabSmuggling: KeytabSmugglingConfig{Enabled: true},
		Enrichment:      EnrichmentConfig{RefreshIntervalSeconds: 300},
		Server:          ServerConfig{Port: 8080},
		Store:           StoreConfig{JournalPath: "./data/edges.journal"},
		LogLevel:        "info",
	}
}

// Load reads the thresholds YAML at path, merged over defaults. A missing
// file returns the defaults unchanged. DATABASE_URL in the environment
// overrides store.database_url.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Store.DatabaseURL = url
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	b := c.PrivilegeEscalation.Bands
	if !(b.Medium < b.High && b.High < b.Critical) {
		return fmt.Errorf("invalid config: severity bands must be increasing (medium=%v high=%v critical=%v)",
			b.Medium, b.High, b.Critical)
	}
	return nil
}
