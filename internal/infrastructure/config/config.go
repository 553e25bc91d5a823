package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvConfigPath = "CAPSNAP_CONFIG"
	EnvStoreURL   = "SUPABASE_URL"
	EnvServiceKey = "SUPABASE_SERVICE_KEY"
	EnvOutputDir  = "CAPSNAP_OUTPUT_DIR"

	DefaultPath = "configs/config.toml"
)

type Config struct {
	App struct {
		// Schedule is a cron expression with seconds; empty runs once and exits.
		Schedule   string `toml:"schedule"`
		RunOnStart bool   `toml:"run_on_start"`
	} `toml:"app"`

	Log struct {
		Level      string `toml:"level"`
		File       string `toml:"file"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxAgeDays int    `toml:"max_age_days"`
	} `toml:"log"`

	Store struct {
		Driver     string `toml:"driver"` // postgrest | postgres | sqlite
		URL        string `toml:"url"`
		ServiceKey string `toml:"service_key"`
		Schema     string `toml:"schema"`
		TimeoutSec int    `toml:"timeout_sec"`
	} `toml:"store"`

	Symbols struct {
		Source string `toml:"source"` // positions | orders
	} `toml:"symbols"`

	Snapshot struct {
		IncludeCurrent *bool  `toml:"include_current"`
		IncludeCalls   *bool  `toml:"include_calls"`
		CapitalSource  string `toml:"capital_source"` // recomputed | summed
	} `toml:"snapshot"`

	Batch struct {
		SymbolTimeoutSec int `toml:"symbol_timeout_sec"`
	} `toml:"batch"`

	Output struct {
		Dir     string `toml:"dir"`
		Console bool   `toml:"console"` // print a summary line per symbol

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Password   string `toml:"password"`
			DB         int    `toml:"db"`
			Prefix     string `toml:"prefix"`
			TTLSeconds int    `toml:"ttl_seconds"`
		} `toml:"redis"`

		S3 struct {
			Enabled         bool   `toml:"enabled"`
			Region          string `toml:"region"`
			Bucket          string `toml:"bucket"`
			Prefix          string `toml:"prefix"`
			Endpoint        string `toml:"endpoint"`
			PathStyle       bool   `toml:"path_style"`
			AccessKeyID     string `toml:"access_key_id"`
			SecretAccessKey string `toml:"secret_access_key"`
		} `toml:"s3"`
	} `toml:"output"`
}

// ConfigurationError reports required settings that are missing or invalid.
// It is returned before any symbol is processed.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "configuration: " + strings.Join(parts, "; ")
}

// Path returns the config file path from the environment or the default.
func Path() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultPath
}

// LoadDotEnv loads a .env file into the process environment when present.
// Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads the toml file at path (a missing file leaves defaults), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvStoreURL)); v != "" {
		cfg.Store.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServiceKey)); v != "" {
		cfg.Store.ServiceKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		cfg.Output.Dir = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "application.log"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 14
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "postgrest"
	}
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	if cfg.Store.Schema == "" {
		cfg.Store.Schema = "hf"
	}
	if cfg.Store.TimeoutSec <= 0 {
		cfg.Store.TimeoutSec = 15
	}
	if cfg.Symbols.Source == "" {
		cfg.Symbols.Source = "positions"
	}
	if cfg.Snapshot.IncludeCurrent == nil {
		cfg.Snapshot.IncludeCurrent = boolPtr(true)
	}
	if cfg.Snapshot.IncludeCalls == nil {
		cfg.Snapshot.IncludeCalls = boolPtr(true)
	}
	if cfg.Snapshot.CapitalSource == "" {
		cfg.Snapshot.CapitalSource = "recomputed"
	}
	if cfg.Batch.SymbolTimeoutSec <= 0 {
		cfg.Batch.SymbolTimeoutSec = 30
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	if cfg.Output.Redis.Prefix == "" {
		cfg.Output.Redis.Prefix = "capsnap"
	}
}

func validate(cfg *Config) error {
	e := &ConfigurationError{}

	if strings.TrimSpace(cfg.Store.URL) == "" {
		e.Missing = append(e.Missing, EnvStoreURL)
	}
	switch cfg.Store.Driver {
	case "postgrest":
		if strings.TrimSpace(cfg.Store.ServiceKey) == "" {
			e.Missing = append(e.Missing, EnvServiceKey)
		}
	case "postgres", "sqlite":
	default:
		e.Invalid = append(e.Invalid, "store.driver="+cfg.Store.Driver)
	}

	switch cfg.Symbols.Source {
	case "positions", "orders":
	default:
		e.Invalid = append(e.Invalid, "symbols.source="+cfg.Symbols.Source)
	}
	switch cfg.Snapshot.CapitalSource {
	case "recomputed", "summed":
	default:
		e.Invalid = append(e.Invalid, "snapshot.capital_source="+cfg.Snapshot.CapitalSource)
	}

	if cfg.Output.Redis.Enabled && strings.TrimSpace(cfg.Output.Redis.Addr) == "" {
		e.Missing = append(e.Missing, "output.redis.addr")
	}
	if cfg.Output.S3.Enabled {
		if strings.TrimSpace(cfg.Output.S3.Bucket) == "" {
			e.Missing = append(e.Missing, "output.s3.bucket")
		}
		if strings.TrimSpace(cfg.Output.S3.Region) == "" {
			e.Missing = append(e.Missing, "output.s3.region")
		}
	}

	if len(e.Missing) > 0 || len(e.Invalid) > 0 {
		return e
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
