package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends for the persisted session keys.
const (
	StorageKeyring = "keyring"
	StorageSQLite  = "sqlite"
	StorageMemory  = "memory"
)

// envPrefix namespaces environment overrides, e.g. MAILAGENT_API_BASE_URL.
const envPrefix = "MAILAGENT"

// APIConfig holds the backend connection settings.
type APIConfig struct {
	// BaseURL is the REST root including any provider prefix
	// (e.g., http://localhost:8000/api/v1).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec is the per-request transport timeout.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// RatePerSec caps outbound requests per second. Zero disables the limit.
	RatePerSec float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`

	// Burst is the limiter burst size when RatePerSec is set.
	Burst int `mapstructure:"burst" yaml:"burst"`
}

// StorageConfig selects where the session token and user are persisted.
type StorageConfig struct {
	// Backend is one of "keyring", "sqlite" or "memory".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the SQLite file used by the "sqlite" backend.
	Path string `mapstructure:"path" yaml:"path"`
}

// SyncConfig controls background inbox synchronisation.
type SyncConfig struct {
	// PollIntervalSec is how often to trigger a backend sync while signed
	// in. Zero disables background sync.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// ExportConfig controls where drafts are written as .eml files.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/mailagent, or "." when the home directory
// cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailagent")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailagent/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dir := configDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8000/api/v1",
			TimeoutSec: 30,
			Burst:      5,
		},
		Storage: StorageConfig{
			Backend: StorageSQLite,
			Path:    filepath.Join(dir, "local.db"),
		},
		Export: ExportConfig{
			Dir: filepath.Join(dir, "drafts"),
		},
		Display: DisplayConfig{
			Theme: "default",
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "mailagent.log"),
		},
	}
}

// setDefaults registers every default with v so that environment
// overrides resolve even for keys absent from the file.
func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout_sec", cfg.API.TimeoutSec)
	v.SetDefault("api.rate_per_sec", cfg.API.RatePerSec)
	v.SetDefault("api.burst", cfg.API.Burst)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("sync.poll_interval_sec", cfg.Sync.PollIntervalSec)
	v.SetDefault("export.dir", cfg.Export.Dir)
	v.SetDefault("display.theme", cfg.Display.Theme)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory is loaded first, and MAILAGENT_*
// environment variables override file values. A missing file yields the
// defaults.
func LoadConfig(path string) (*AppConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	defaults := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, defaults)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") &&
		!strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}

	switch c.Storage.Backend {
	case StorageKeyring, StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	if c.API.TimeoutSec < 0 || c.Sync.PollIntervalSec < 0 || c.API.RatePerSec < 0 {
		return errors.New("timeouts, intervals and rates must not be negative")
	}

	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("storage", cfg.Storage)
	v.Set("sync", cfg.Sync)
	v.Set("export", cfg.Export)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
