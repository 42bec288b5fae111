// Package config loads the songplays job configuration.
//
// Values come, in increasing precedence, from built-in defaults, an optional
// YAML/JSON config file, dotenv files and SONGPLAYS_* environment variables
// (dots in keys become underscores, e.g. SONGPLAYS_STORAGE_DSN).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SONGPLAYS"

// Config is the full job configuration.
type Config struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
	// Job labels metrics and log lines.
	Job string `mapstructure:"job"`
	// TimeZone is the IANA zone used to derive wall-clock start times.
	TimeZone string `mapstructure:"time_zone"`
	// FailFast stops the run at the first failed file.
	FailFast bool `mapstructure:"fail_fast"`

	Source  SourceConfig  `mapstructure:"source"`
	Storage StorageConfig `mapstructure:"storage"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SourceConfig locates the input files.
type SourceConfig struct {
	SongDir string `mapstructure:"song_dir"`
	LogDir  string `mapstructure:"log_dir"`
	Pattern string `mapstructure:"pattern"`
}

// StorageConfig selects and reaches the warehouse database.
type StorageConfig struct {
	// Kind is a registered backend: postgres, sqlite, mssql or mysql.
	Kind           string        `mapstructure:"kind"`
	DSN            string        `mapstructure:"dsn"`
	TablePrefix    string        `mapstructure:"table_prefix"`
	AutoCreate     bool          `mapstructure:"auto_create"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// RuntimeConfig tunes loading.
type RuntimeConfig struct {
	BatchSize        int `mapstructure:"batch_size"`
	CatalogCacheSize int `mapstructure:"catalog_cache_size"`
	MaxErrorSamples  int `mapstructure:"max_error_samples"`
}

// LedgerConfig toggles the processed-files ledger.
type LedgerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is none, pushgateway or datadog.
	Backend        string   `mapstructure:"backend"`
	PushgatewayURL string   `mapstructure:"pushgateway_url"`
	DatadogAddr    string   `mapstructure:"datadog_addr"`
	Namespace      string   `mapstructure:"namespace"`
	Tags           []string `mapstructure:"tags"`
}

// Location resolves TimeZone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.TimeZone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}

var keys = []string{
	"debug",
	"sentry_dsn",
	"job",
	"time_zone",
	"fail_fast",
	"source.song_dir",
	"source.log_dir",
	"source.pattern",
	"storage.kind",
	"storage.dsn",
	"storage.table_prefix",
	"storage.auto_create",
	"storage.connect_timeout",
	"storage.max_retries",
	"runtime.batch_size",
	"runtime.catalog_cache_size",
	"runtime.max_error_samples",
	"ledger.enabled",
	"metrics.backend",
	"metrics.pushgateway_url",
	"metrics.datadog_addr",
	"metrics.namespace",
	"metrics.tags",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("job", "songplays")
	v.SetDefault("time_zone", "UTC")
	v.SetDefault("source.song_dir", "data/song_data")
	v.SetDefault("source.log_dir", "data/log_data")
	v.SetDefault("source.pattern", "*.json")
	v.SetDefault("storage.kind", "postgres")
	v.SetDefault("storage.auto_create", true)
	v.SetDefault("storage.connect_timeout", "10s")
	v.SetDefault("storage.max_retries", 5)
	v.SetDefault("runtime.batch_size", 10000)
	v.SetDefault("runtime.catalog_cache_size", 4096)
	v.SetDefault("runtime.max_error_samples", 3)
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.namespace", "songplays.")
}

// Load reads the configuration. configFile may be empty, in which case
// config.yaml is looked up in the working directory and config/; a missing
// file is not an error then. envPath is the directory holding .env and
// .env.local (default config/).
func Load(configFile, envPath string) (*Config, error) {
	v := newViper(configFile, envPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func newViper(configFile, envPath string) *viper.Viper {
	v := viper.New()
	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Without an explicit binding Unmarshal does not see env-only keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	setDefaults(v)
	return v
}

// loadEnv loads .env then .env.local from envPath; later files win.
func loadEnv(envPath string) {
	if envPath == "" {
		envPath = "config/"
	}
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(filepath.Join(envPath, name))
	}
}
