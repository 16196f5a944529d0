package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIKey         string        `mapstructure:"coinify_api_key"`
	APISecret      string        `mapstructure:"coinify_api_secret"`
	BaseURL        string        `mapstructure:"coinify_base_url"`
	TimeoutSeconds int64         `mapstructure:"coinify_timeout_seconds"`
	Timeout        time.Duration `mapstructure:"-"`
	OutputFormat   string        `mapstructure:"output_format"`

	PublishersFile       string        `mapstructure:"publishers_file"`
	WatchIntervalSeconds int64         `mapstructure:"watch_interval"`
	WatchInterval        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

var keys = []string{
	"app_name", "app_env", "log_level",
	"coinify_api_key", "coinify_api_secret", "coinify_base_url", "coinify_timeout_seconds", "output_format",
	"publishers_file", "watch_interval",
	"storage_type", "bbolt_path", "storage_ttl_seconds", "storage_cleanup_interval_seconds",
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "coinify-cli")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("coinify_api_key", "")
	v.SetDefault("coinify_api_secret", "")
	v.SetDefault("coinify_base_url", "https://api.coinify.com")
	v.SetDefault("coinify_timeout_seconds", 30)
	v.SetDefault("output_format", "json")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("watch_interval", 60) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/invoices.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateOutputFormat normalizes format and rejects anything but json or yaml.
func ValidateOutputFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f != "json" && f != "yaml" {
		return "", fmt.Errorf("invalid output_format %q (expected json or yaml)", format)
	}
	return f, nil
}

func (c *Config) normalize() error {
	format, err := ValidateOutputFormat(c.OutputFormat)
	if err != nil {
		return err
	}
	c.OutputFormat = format
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid coinify_timeout_seconds (must be positive seconds)")
	}
	c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second

	if c.WatchIntervalSeconds <= 0 {
		return fmt.Errorf("invalid watch_interval (must be positive seconds)")
	}
	c.WatchInterval = time.Duration(c.WatchIntervalSeconds) * time.Second

	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.StorageTTL = time.Duration(c.StorageTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second
	return nil
}

// RequireCredentials reports whether API credentials are configured.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.APISecret) == "" {
		return fmt.Errorf("COINIFY_API_KEY and COINIFY_API_SECRET must be set")
	}
	return nil
}

// Redacted returns a copy that is safe to log.
func (c Config) Redacted() Config {
	if c.APISecret != "" {
		c.APISecret = "***"
	}
	return c
}
