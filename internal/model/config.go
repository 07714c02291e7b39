package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default RPC endpoints selected by APIConfig.Env when URL is empty.
const (
	DevAPIURL  = "http://localhost:8787/rpc"
	ProdAPIURL = "https://api.medpronto.app/rpc"
)

// minInterval is the smallest polling interval Validate accepts.
const minInterval = 100 * time.Millisecond

// APIConfig holds the RPC backend settings.
type APIConfig struct {
	// URL is the RPC endpoint. When empty it is derived from Env.
	URL string `mapstructure:"url" yaml:"url"`

	// Env selects the default endpoint ("dev" or "prod").
	Env string `mapstructure:"env" yaml:"env"`

	// Timeout bounds every fetch and submit.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxRetries is how many times a rate-limited request is attempted.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// Endpoint returns the effective RPC URL.
func (c APIConfig) Endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Env == "dev" {
		return DevAPIURL
	}
	return ProdAPIURL
}

// SyncConfig holds the adaptive polling intervals.
type SyncConfig struct {
	ActiveInterval     time.Duration `mapstructure:"active_interval" yaml:"active_interval"`
	BackgroundInterval time.Duration `mapstructure:"background_interval" yaml:"background_interval"`
	IdleInterval       time.Duration `mapstructure:"idle_interval" yaml:"idle_interval"`

	// IdleThreshold is how long without input before a visible client goes idle.
	IdleThreshold time.Duration `mapstructure:"idle_threshold" yaml:"idle_threshold"`
}

// UserConfig identifies the local chat user.
type UserConfig struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Name string `mapstructure:"name" yaml:"name"`
	Type string `mapstructure:"type" yaml:"type"`
}

// StoreConfig holds local persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	User    UserConfig    `mapstructure:"user" yaml:"user"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/clinicchat/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "clinicchat", "config.yaml")
}

// DefaultStorePath returns the default SQLite database location.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "clinicchat.db")
	}
	return filepath.Join(home, ".local", "share", "clinicchat", "clinicchat.db")
}

// DefaultAppConfig returns the built-in configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			Env:        "prod",
			Timeout:    20 * time.Second,
			MaxRetries: 3,
		},
		Sync: SyncConfig{
			ActiveInterval:     3 * time.Second,
			BackgroundInterval: 15 * time.Second,
			IdleInterval:       30 * time.Second,
			IdleThreshold:      2 * time.Minute,
		},
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("api.url", d.API.URL)
	v.SetDefault("api.env", d.API.Env)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("sync.active_interval", d.Sync.ActiveInterval)
	v.SetDefault("sync.background_interval", d.Sync.BackgroundInterval)
	v.SetDefault("sync.idle_interval", d.Sync.IdleInterval)
	v.SetDefault("sync.idle_threshold", d.Sync.IdleThreshold)
	v.SetDefault("user.id", "")
	v.SetDefault("user.name", "")
	v.SetDefault("user.type", "")
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", "")
	v.SetDefault("display.theme", d.Display.Theme)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory is loaded first, and CLINICCHAT_*
// environment variables override file values. If the file does not exist,
// defaults (plus environment overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CLINICCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

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
	cfg.Store.Path = expandTilde(cfg.Store.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
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

	v.Set("api", map[string]any{
		"url":         cfg.API.URL,
		"env":         cfg.API.Env,
		"timeout":     cfg.API.Timeout.String(),
		"max_retries": cfg.API.MaxRetries,
	})
	v.Set("sync", map[string]any{
		"active_interval":     cfg.Sync.ActiveInterval.String(),
		"background_interval": cfg.Sync.BackgroundInterval.String(),
		"idle_interval":       cfg.Sync.IdleInterval.String(),
		"idle_threshold":      cfg.Sync.IdleThreshold.String(),
	})
	v.Set("user", cfg.User)
	v.Set("store", cfg.Store)
	v.Set("logging", cfg.Logging)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Validate checks interval and timeout bounds.
func (c *AppConfig) Validate() error {
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.MaxRetries < 1 {
		return fmt.Errorf("api.max_retries must be at least 1, got %d", c.API.MaxRetries)
	}
	if c.API.Env != "dev" && c.API.Env != "prod" {
		return fmt.Errorf("api.env must be dev or prod, got %q", c.API.Env)
	}

	intervals := map[string]time.Duration{
		"sync.active_interval":     c.Sync.ActiveInterval,
		"sync.background_interval": c.Sync.BackgroundInterval,
		"sync.idle_interval":       c.Sync.IdleInterval,
		"sync.idle_threshold":      c.Sync.IdleThreshold,
	}
	for key, d := range intervals {
		if d < minInterval {
			return fmt.Errorf("%s must be at least %s, got %s", key, minInterval, d)
		}
	}
	if c.Sync.ActiveInterval > c.Sync.BackgroundInterval {
		return errors.New("sync.active_interval must not exceed sync.background_interval")
	}
	if c.Sync.ActiveInterval > c.Sync.IdleInterval {
		return errors.New("sync.active_interval must not exceed sync.idle_interval")
	}
	if c.Display.Theme != "default" && c.Display.Theme != "mono" {
		return fmt.Errorf("display.theme must be default or mono, got %q", c.Display.Theme)
	}
	return nil
}

func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
