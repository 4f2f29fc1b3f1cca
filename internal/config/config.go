// Package config loads and validates dashboard configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Trace exporters.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// Archive drivers.
const (
	ArchiveNone   = "none"
	ArchiveMemory = "memory"
	ArchiveLocal  = "local"
	ArchiveGCS    = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	PageSpeed PageSpeedConfig `mapstructure:"pagespeed"`
	DB        DBConfig        `mapstructure:"db"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Titles    TitlesConfig    `mapstructure:"titles"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int           `mapstructure:"port"`
	RequestTimeoutSeconds int           `mapstructure:"request_timeout_seconds"`
	SessionTTL            time.Duration `mapstructure:"session_ttl"`
}

// AuthConfig defines API authentication toggles for the /api routes.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// PageSpeedConfig points at the audit API.
type PageSpeedConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// RateLimitRPS throttles outbound audits. Zero disables throttling.
	RateLimitRPS     float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst   int     `mapstructure:"rate_limit_burst"`
	RateLimitPerSite bool    `mapstructure:"rate_limit_per_site"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Driver                 string `mapstructure:"driver"`
	DSN                    string `mapstructure:"dsn"`
	SQLitePath             string `mapstructure:"sqlite_path"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
	URLsTable              string `mapstructure:"urls_table"`
	ResultsTable           string `mapstructure:"results_table"`
	Migrate                bool   `mapstructure:"migrate"`
}

// ArchiveConfig selects where raw audit responses are kept.
type ArchiveConfig struct {
	Driver    string `mapstructure:"driver"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for save notifications. An empty project id keeps
// notifications in process.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TitlesConfig controls title suggestions for newly analyzed urls.
type TitlesConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// TracingConfig selects the OpenTelemetry span exporter.
type TracingConfig struct {
	Exporter    string  `mapstructure:"exporter"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	// Cloud Run injects PORT; the prefixed variable wins when both are set.
	if err := v.BindEnv("server.port", "DASHBOARD_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 90)
	v.SetDefault("server.session_ttl", 12*time.Hour)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("pagespeed.base_url", "https://www.googleapis.com/pagespeedonline/v5/runPagespeed")
	v.SetDefault("pagespeed.api_key", "")
	v.SetDefault("pagespeed.timeout_seconds", 60)
	v.SetDefault("pagespeed.rate_limit_rps", 0)
	v.SetDefault("pagespeed.rate_limit_burst", 1)
	v.SetDefault("pagespeed.rate_limit_per_site", false)
	v.SetDefault("db.driver", DriverMemory)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.sqlite_path", "dashboard.db")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("db.urls_table", "urls")
	v.SetDefault("db.results_table", "results")
	v.SetDefault("db.migrate", false)
	v.SetDefault("archive.driver", ArchiveNone)
	v.SetDefault("archive.base_dir", "archive")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "audits")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "dashboard-results")
	v.SetDefault("titles.enabled", true)
	v.SetDefault("titles.user_agent", "lighthouse-dashboard/0.1")
	v.SetDefault("titles.timeout_seconds", 5)
	v.SetDefault("titles.respect_robots", true)
	v.SetDefault("tracing.exporter", TraceExporterNone)
	v.SetDefault("tracing.service_name", "lighthouse-dashboard")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.session_ttl must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.PageSpeed.BaseURL == "" {
		return fmt.Errorf("pagespeed.base_url is required")
	}
	if c.PageSpeed.TimeoutSeconds <= 0 {
		return fmt.Errorf("pagespeed.timeout_seconds must be > 0")
	}
	if c.PageSpeed.RateLimitRPS < 0 {
		return fmt.Errorf("pagespeed.rate_limit_rps must be >= 0")
	}
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres driver")
		}
	case DriverSQLite:
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("db.sqlite_path must be set for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("db.driver must be one of postgres, sqlite, memory; got %q", c.DB.Driver)
	}
	switch c.Archive.Driver {
	case ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local archive")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs archive")
		}
	default:
		return fmt.Errorf("archive.driver must be one of none, memory, local, gcs; got %q", c.Archive.Driver)
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	if c.Titles.Enabled && c.Titles.TimeoutSeconds <= 0 {
		return fmt.Errorf("titles.timeout_seconds must be > 0 when titles are enabled")
	}
	switch c.Tracing.Exporter {
	case "", TraceExporterNone, TraceExporterStdout:
	default:
		return fmt.Errorf("tracing.exporter must be one of none, stdout; got %q", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0,1]")
	}
	return nil
}

// RequestTimeout is the per-request budget applied by the HTTP middleware.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// AuditTimeout bounds a single call to the audit API.
func (c Config) AuditTimeout() time.Duration {
	return time.Duration(c.PageSpeed.TimeoutSeconds) * time.Second
}

// TitleTimeout bounds a single title fetch.
func (c Config) TitleTimeout() time.Duration {
	return time.Duration(c.Titles.TimeoutSeconds) * time.Second
}

// ConnLifetime returns the maximum lifetime of a pooled database connection.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifetimeMinutes) * time.Minute
}
