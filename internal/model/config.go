package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds the backend connection settings.
type APIConfig struct {
	// BaseURL is the root URL of the mission backend.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Timeout bounds every HTTP round trip.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RequestsPerSecond and Burst configure the outbound request limiter.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// AuthConfig holds social login settings.
type AuthConfig struct {
	KakaoClientID      string        `mapstructure:"kakao_client_id" yaml:"kakao_client_id"`
	KakaoRedirectURI   string        `mapstructure:"kakao_redirect_uri" yaml:"kakao_redirect_uri"`
	SocialLoginTimeout time.Duration `mapstructure:"social_login_timeout" yaml:"social_login_timeout"`
}

// CacheConfig holds the freshness windows of the session caches.
type CacheConfig struct {
	DayTTL         time.Duration `mapstructure:"day_ttl" yaml:"day_ttl"`
	GroupTTL       time.Duration `mapstructure:"group_ttl" yaml:"group_ttl"`
	WeekSummaryTTL time.Duration `mapstructure:"week_summary_ttl" yaml:"week_summary_ttl"`
}

// SyncConfig holds background watcher settings.
type SyncConfig struct {
	RolloverInterval time.Duration `mapstructure:"rollover_interval" yaml:"rollover_interval"`
}

// StorageConfig holds device storage settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// MetricsConfig holds the optional diagnostics listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// envPrefix namespaces environment overrides, e.g. ECOMISSION_API_BASE_URL.
const envPrefix = "ECOMISSION"

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/ecomission/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "ecomission", "config.yaml")
}

// DefaultDBPath returns the default location of the device store.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "ecomission.db")
	}
	return filepath.Join(home, ".config", "ecomission", "ecomission.db")
}

// DefaultAppConfig returns the configuration used when no file is present.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:           "http://localhost:8000",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Auth: AuthConfig{
			KakaoRedirectURI:   "http://localhost:3000/auth/kakao/callback",
			SocialLoginTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			DayTTL:         30 * time.Second,
			GroupTTL:       30 * time.Second,
			WeekSummaryTTL: 60 * time.Second,
		},
		Sync: SyncConfig{
			RolloverInterval: 60 * time.Second,
		},
		Storage: StorageConfig{
			DBPath: DefaultDBPath(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.requests_per_second", d.API.RequestsPerSecond)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("auth.kakao_client_id", d.Auth.KakaoClientID)
	v.SetDefault("auth.kakao_redirect_uri", d.Auth.KakaoRedirectURI)
	v.SetDefault("auth.social_login_timeout", d.Auth.SocialLoginTimeout)
	v.SetDefault("cache.day_ttl", d.Cache.DayTTL)
	v.SetDefault("cache.group_ttl", d.Cache.GroupTTL)
	v.SetDefault("cache.week_summary_ttl", d.Cache.WeekSummaryTTL)
	v.SetDefault("sync.rollover_interval", d.Sync.RolloverInterval)
	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with ECOMISSION_ override file values.
// If the file does not exist, defaults (plus environment overrides) are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the client cannot run with.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return &ValidationError{Field: "api.base_url", Message: "must not be empty"}
	}
	if c.API.RequestsPerSecond <= 0 {
		return &ValidationError{Field: "api.requests_per_second", Message: "must be positive"}
	}
	if c.API.Burst < 1 {
		return &ValidationError{Field: "api.burst", Message: "must be at least 1"}
	}
	for name, d := range map[string]time.Duration{
		"api.timeout":               c.API.Timeout,
		"auth.social_login_timeout": c.Auth.SocialLoginTimeout,
		"cache.day_ttl":             c.Cache.DayTTL,
		"cache.group_ttl":           c.Cache.GroupTTL,
		"cache.week_summary_ttl":    c.Cache.WeekSummaryTTL,
		"sync.rollover_interval":    c.Sync.RolloverInterval,
	} {
		if d <= 0 {
			return &ValidationError{Field: name, Value: d.String(), Message: "must be positive"}
		}
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
	v.Set("auth", cfg.Auth)
	v.Set("cache", cfg.Cache)
	v.Set("sync", cfg.Sync)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
