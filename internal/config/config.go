package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. MERIDIAN_BATCH_SIZE.
const EnvPrefix = "MERIDIAN"

// Providers that can take part in the cascade.
var KnownProviders = []string{"census", "opencage", "nominatim", "google"}

var (
	ErrBatchSize = errors.New("failed to parse batch size from configuration, must be a positive integer")
	ErrWorkers   = errors.New("failed to parse cascade workers from configuration, must be a positive integer")
	ErrThreshold = errors.New("opencage threshold must be between 0 and 10")
	ErrProvider  = errors.New("unknown cascade provider in configuration")
	ErrNoSteps   = errors.New("cascade needs at least one provider")
)

// Config holds the configuration settings for a geocoding run.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Batch: Bulk batch sizing.
// - Bulk: Census batch endpoint, pacing, timeout and retries.
// - Cascade: Order, concurrency and retries of single-address providers.
// - OpenCage, Nominatim, Google, Census: Per-provider credentials and rate limits.
// - Input, Output: Table column mapping and output locations.
// - Database: Optional PostgreSQL sink.
// - Metrics, Tracing: Observability endpoints.
type Config struct {
	Env       string          `mapstructure:"env"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Bulk      BulkConfig      `mapstructure:"bulk"`
	Cascade   CascadeConfig   `mapstructure:"cascade"`
	OpenCage  OpenCageConfig  `mapstructure:"opencage"`
	Nominatim NominatimConfig `mapstructure:"nominatim"`
	Google    GoogleConfig    `mapstructure:"google"`
	Census    CensusConfig    `mapstructure:"census"`
	Input     InputConfig     `mapstructure:"input"`
	Output    OutputConfig    `mapstructure:"output"`
	Database  PostgresConfig  `mapstructure:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type BatchConfig struct {
	Size int `mapstructure:"size"` // Addresses per bulk submission.
}

type BulkConfig struct {
	URL         string        `mapstructure:"url"`
	MinInterval time.Duration `mapstructure:"min_interval"` // Minimum delay between submissions.
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     uint64        `mapstructure:"retries"`
}

type CascadeConfig struct {
	Providers []string `mapstructure:"providers"` // Step order, e.g. opencage,nominatim.
	Workers   int      `mapstructure:"workers"`
	Retries   uint64   `mapstructure:"retries"`
}

type OpenCageConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Threshold int    `mapstructure:"threshold"` // Minimum accepted confidence, 0-10.
	RateLimit int    `mapstructure:"rate_limit"`
}

type NominatimConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	RateLimit int    `mapstructure:"rate_limit"`
	Fallback  bool   `mapstructure:"fallback"`
}

type GoogleConfig struct {
	APIKey    string `mapstructure:"api_key"`
	RateLimit int    `mapstructure:"rate_limit"`
}

type CensusConfig struct {
	RateLimit int `mapstructure:"rate_limit"`
}

// InputConfig maps table columns to address fields. An empty IDColumn means
// IDs are assigned in input order.
type InputConfig struct {
	IDColumn   string `mapstructure:"id_column"`
	Street     string `mapstructure:"street"`
	City       string `mapstructure:"city"`
	State      string `mapstructure:"state"`
	PostalCode string `mapstructure:"postal_code"`
}

type OutputConfig struct {
	IDColumn string `mapstructure:"id_column"` // Name of the ID column added to tables without one.
	BatchDir string `mapstructure:"batch_dir"`
	Tag      string `mapstructure:"tag"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`     // Host is the database server address.
	Port     string `mapstructure:"port"`     // Port is the database server port.
	User     string `mapstructure:"user"`     // User is the database user.
	Password string `mapstructure:"password"` // Password is the database user's password.
	Name     string `mapstructure:"name"`     // Name is the name of the database.
}

type MetricsConfig struct {
	Port        int    `mapstructure:"port"` // 0 disables the monitoring server.
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("batch.size", 5000)
	v.SetDefault("bulk.url", "https://geocoding.geo.census.gov/geocoder/locations/addressbatch")
	v.SetDefault("bulk.min_interval", "10s")
	v.SetDefault("bulk.timeout", "10m")
	v.SetDefault("bulk.retries", 2)
	v.SetDefault("cascade.providers", []string{"opencage", "nominatim"})
	v.SetDefault("cascade.workers", 1)
	v.SetDefault("cascade.retries", 1)
	v.SetDefault("opencage.api_key", "")
	v.SetDefault("opencage.threshold", 7)
	v.SetDefault("opencage.rate_limit", 1)
	v.SetDefault("nominatim.user_agent", "")
	v.SetDefault("nominatim.rate_limit", 1)
	v.SetDefault("nominatim.fallback", false)
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.rate_limit", 50)
	v.SetDefault("census.rate_limit", 10)
	v.SetDefault("input.id_column", "")
	v.SetDefault("input.street", "street")
	v.SetDefault("input.city", "city")
	v.SetDefault("input.state", "state")
	v.SetDefault("input.postal_code", "zip")
	v.SetDefault("output.id_column", "batch_id")
	v.SetDefault("output.batch_dir", "")
	v.SetDefault("output.tag", "")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "meridian")
	v.SetDefault("metrics.port", 0)
	v.SetDefault("metrics.pushgateway", "")
	v.SetDefault("metrics.job", "meridian")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.insecure", true)
}

// Load reads .env, an optional meridian.yaml in the working directory and
// MERIDIAN_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML config file. An empty path looks for
// an optional meridian.yaml in the working directory.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("meridian")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would make a run meaningless.
func (c *Config) Validate() error {
	if c.Batch.Size <= 0 {
		return ErrBatchSize
	}
	if c.Cascade.Workers <= 0 {
		return ErrWorkers
	}
	if c.OpenCage.Threshold < 0 || c.OpenCage.Threshold > 10 {
		return ErrThreshold
	}

	c.Cascade.Providers = normalize(c.Cascade.Providers)
	if len(c.Cascade.Providers) == 0 {
		return ErrNoSteps
	}
	for _, p := range c.Cascade.Providers {
		if !slices.Contains(KnownProviders, p) {
			return fmt.Errorf("%w: %q", ErrProvider, p)
		}
	}
	return nil
}

// normalize splits comma-separated entries and lowercases them.
func normalize(providers []string) []string {
	var out []string
	for _, entry := range providers {
		for _, p := range strings.Split(entry, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// MustLoad loads the configuration and panics if it cannot be used.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		for _, sentinel := range []error{ErrBatchSize, ErrWorkers, ErrThreshold, ErrNoSteps, ErrProvider} {
			if errors.Is(err, sentinel) {
				panic(sentinel.Error())
			}
		}
		panic("failed to parse configuration, check value types")
	}
	return cfg
}
