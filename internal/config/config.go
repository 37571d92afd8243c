package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Backend   BackendConfig
	UI        UIConfig
	Reports   ReportsConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// BackendConfig addresses the analysis service. The credential pair is a
// static placeholder shared with the web and desktop clients.
type BackendConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	NotifyTTL  time.Duration `mapstructure:"notify_ttl"`
	UploadDir  string        `mapstructure:"upload_dir"`
	DateFormat string        `mapstructure:"date_format"`
	Timezone   string        `mapstructure:"timezone"`
}

// ReportsConfig selects where generated PDF reports are saved.
type ReportsConfig struct {
	Driver string   `mapstructure:"driver"`
	Dir    string   `mapstructure:"dir"`
	S3     S3Config `mapstructure:"s3"`
}

// S3Config holds S3 / MinIO settings for the s3 report driver.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
	Prefix    string `mapstructure:"prefix"`

	// Static credentials; leave empty to use the default AWS chain.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

type LogConfig struct {
	Path string `mapstructure:"path"`
	Mode string `mapstructure:"mode"`
}

// TelemetryConfig controls request tracing. Spans go to Endpoint over OTLP/HTTP
// when set, otherwise to the JSON file at Path.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Path        string  `mapstructure:"path"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Path returns the config file location: EQUIPVIZ_CONFIG or the user config dir.
func Path() string {
	if p := os.Getenv("EQUIPVIZ_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "equipviz", "config.toml")
}

func setDefaults(v *viper.Viper) {
	state := filepath.Join(os.Getenv("HOME"), ".local", "state", "equipviz")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.username", "admin")
	v.SetDefault("backend.password", "password123")
	v.SetDefault("backend.timeout", "0s")
	v.SetDefault("ui.notify_ttl", "5s")
	v.SetDefault("ui.upload_dir", ".")
	v.SetDefault("ui.date_format", "2006-01-02 15:04")
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("reports.driver", "fs")
	v.SetDefault("reports.dir", "./reports")
	v.SetDefault("reports.s3.bucket", "")
	v.SetDefault("reports.s3.region", "us-east-1")
	v.SetDefault("reports.s3.endpoint", "")
	v.SetDefault("reports.s3.path_style", false)
	v.SetDefault("reports.s3.prefix", "reports/")
	v.SetDefault("reports.s3.access_key_id", "")
	v.SetDefault("reports.s3.secret_access_key", "")
	v.SetDefault("reports.s3.session_token", "")
	v.SetDefault("log.path", filepath.Join(state, "equipviz.log"))
	v.SetDefault("log.mode", "dev")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.path", filepath.Join(state, "traces.json"))
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Load reads configuration from file and env. Env var overrides use prefix EQUIPVIZ_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("EQUIPVIZ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("config: backend.base_url is empty")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("config: backend.timeout must not be negative")
	}
	if c.UI.NotifyTTL <= 0 {
		return fmt.Errorf("config: ui.notify_ttl must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: telemetry.sample_ratio must be within [0, 1]")
	}
	switch c.Reports.Driver {
	case "fs", "memory":
	case "s3":
		if c.Reports.S3.Bucket == "" {
			return fmt.Errorf("config: reports.s3.bucket required for s3 driver")
		}
	default:
		return fmt.Errorf("config: unknown reports.driver %q", c.Reports.Driver)
	}
	return nil
}

// Location resolves the configured display timezone, falling back to local time.
func (c Config) Location() *time.Location {
	if c.UI.Timezone == "" || strings.EqualFold(c.UI.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Save writes the provided config to disk, creating the config directory if needed.
// The backend password is written in plain text; prefer EQUIPVIZ_BACKEND_PASSWORD.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("backend.base_url", cfg.Backend.BaseURL)
	v.Set("backend.username", cfg.Backend.Username)
	v.Set("backend.password", cfg.Backend.Password)
	v.Set("backend.timeout", cfg.Backend.Timeout.String())
	v.Set("ui.notify_ttl", cfg.UI.NotifyTTL.String())
	v.Set("ui.upload_dir", cfg.UI.UploadDir)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("reports.driver", cfg.Reports.Driver)
	v.Set("reports.dir", cfg.Reports.Dir)
	v.Set("reports.s3.bucket", cfg.Reports.S3.Bucket)
	v.Set("reports.s3.region", cfg.Reports.S3.Region)
	v.Set("reports.s3.endpoint", cfg.Reports.S3.Endpoint)
	v.Set("reports.s3.path_style", cfg.Reports.S3.PathStyle)
	v.Set("reports.s3.prefix", cfg.Reports.S3.Prefix)
	v.Set("reports.s3.access_key_id", cfg.Reports.S3.AccessKeyID)
	v.Set("reports.s3.secret_access_key", cfg.Reports.S3.SecretAccessKey)
	v.Set("reports.s3.session_token", cfg.Reports.S3.SessionToken)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.mode", cfg.Log.Mode)
	v.Set("telemetry.enabled", cfg.Telemetry.Enabled)
	v.Set("telemetry.path", cfg.Telemetry.Path)
	v.Set("telemetry.endpoint", cfg.Telemetry.Endpoint)
	v.Set("telemetry.insecure", cfg.Telemetry.Insecure)
	v.Set("telemetry.sample_ratio", cfg.Telemetry.SampleRatio)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
