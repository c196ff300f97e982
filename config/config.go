// Package config loads the configuration of sctree tools from YAML files
// with environment-variable overrides (SCTREE_*).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Codec     CodecConfig     `yaml:"codec"`
	Loader    LoaderConfig    `yaml:"loader"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	HTTP      HTTPConfig      `yaml:"http"`
	Traversal TraversalConfig `yaml:"traversal"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CodecConfig controls deflating buffers into chunks.
type CodecConfig struct {
	Format           string `yaml:"format"` // json or binary
	MinBlockSize     int    `yaml:"minBlockSize"`
	MinChunkElements int    `yaml:"minChunkElements"`
}

// LoaderConfig selects the chunk source and bounds chunk loading.
type LoaderConfig struct {
	MaxWorkers int           `yaml:"maxWorkers"`
	Source     string        `yaml:"source"` // file, http, redis or postgres
	Dir        string        `yaml:"dir"`    // base directory of the file source
	Root       string        `yaml:"root"`   // locator of the manifest
	Timeout    time.Duration `yaml:"timeout"`
}

// RedisConfig holds Redis connection parameters of the chunk store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters of the chunk store.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslMode"`
	Table    string `yaml:"table"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// HTTPConfig configures the HTTP chunk source.
type HTTPConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// TraversalConfig configures the traversal scheduler.
type TraversalConfig struct {
	Accelerator bool `yaml:"accelerator"` // use the parallel executor
	Workers     int  `yaml:"workers"`     // 0 means GOMAXPROCS
}

// TracingConfig sets the trace level of all sctree tracers.
type TracingConfig struct {
	Level string `yaml:"level"` // error, info or debug
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values are set to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used for values not set otherwise.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			Format:           "json",
			MinBlockSize:     64,
			MinChunkElements: 1000,
		},
		Loader: LoaderConfig{
			MaxWorkers: 4,
			Source:     "file",
			Dir:        ".",
			Timeout:    30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			Prefix:   "sctree:",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "sctree",
			User:     "sctree",
			SSLMode:  "disable",
			Table:    "sctree_chunks",
		},
		HTTP: HTTPConfig{
			Timeout: 10 * time.Second,
		},
		Tracing: TracingConfig{
			Level: "error",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.Codec.Format {
	case "json", "binary":
	default:
		return fmt.Errorf("config: unknown codec format %q", c.Codec.Format)
	}
	switch c.Loader.Source {
	case "file", "http", "redis", "postgres":
	default:
		return fmt.Errorf("config: unknown chunk source %q", c.Loader.Source)
	}
	if c.Loader.Source == "http" && c.HTTP.BaseURL == "" {
		return fmt.Errorf("config: http source needs a base URL")
	}
	if c.Loader.MaxWorkers <= 0 {
		return fmt.Errorf("config: loader needs at least one worker, have %d", c.Loader.MaxWorkers)
	}
	if c.Codec.MinBlockSize <= 0 || c.Codec.MinChunkElements <= 0 {
		return fmt.Errorf("config: codec thresholds must be positive")
	}
	if _, ok := traceLevels[strings.ToLower(c.Tracing.Level)]; !ok {
		return fmt.Errorf("config: unknown trace level %q", c.Tracing.Level)
	}
	return nil
}

// TraceKeys are the tracer keys of all sctree packages.
var TraceKeys = []string{
	"sctree.dom",
	"sctree.selector",
	"sctree.flat",
	"sctree.match",
	"sctree.traverse",
	"sctree.sparse",
	"sctree.loader",
}

var traceLevels = map[string]tracing.TraceLevel{
	"error": tracing.LevelError,
	"info":  tracing.LevelInfo,
	"debug": tracing.LevelDebug,
}

// Apply sets the trace level of all tracers in TraceKeys.
func (t TracingConfig) Apply() {
	level, ok := traceLevels[strings.ToLower(t.Level)]
	if !ok {
		level = tracing.LevelError
	}
	for _, key := range TraceKeys {
		tracing.Select(key).SetTraceLevel(level)
	}
}

// applyEnvOverrides reads SCTREE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	str("SCTREE_CODEC_FORMAT", &cfg.Codec.Format)
	num("SCTREE_CODEC_MIN_BLOCK_SIZE", &cfg.Codec.MinBlockSize)
	num("SCTREE_CODEC_MIN_CHUNK_ELEMENTS", &cfg.Codec.MinChunkElements)
	num("SCTREE_LOADER_MAX_WORKERS", &cfg.Loader.MaxWorkers)
	str("SCTREE_LOADER_SOURCE", &cfg.Loader.Source)
	str("SCTREE_LOADER_DIR", &cfg.Loader.Dir)
	str("SCTREE_LOADER_ROOT", &cfg.Loader.Root)
	if v := os.Getenv("SCTREE_LOADER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Loader.Timeout = d
		}
	}
	str("SCTREE_REDIS_ADDR", &cfg.Redis.Addr)
	str("SCTREE_REDIS_PASSWORD", &cfg.Redis.Password)
	num("SCTREE_REDIS_DB", &cfg.Redis.DB)
	str("SCTREE_REDIS_PREFIX", &cfg.Redis.Prefix)
	str("SCTREE_POSTGRES_HOST", &cfg.Postgres.Host)
	num("SCTREE_POSTGRES_PORT", &cfg.Postgres.Port)
	str("SCTREE_POSTGRES_DATABASE", &cfg.Postgres.Database)
	str("SCTREE_POSTGRES_USER", &cfg.Postgres.User)
	str("SCTREE_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	str("SCTREE_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	str("SCTREE_POSTGRES_TABLE", &cfg.Postgres.Table)
	str("SCTREE_HTTP_BASE_URL", &cfg.HTTP.BaseURL)
	if v := os.Getenv("SCTREE_TRAVERSAL_ACCELERATOR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Traversal.Accelerator = b
		}
	}
	num("SCTREE_TRAVERSAL_WORKERS", &cfg.Traversal.Workers)
	str("SCTREE_TRACING_LEVEL", &cfg.Tracing.Level)
	if v := os.Getenv("SCTREE_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	str("SCTREE_METRICS_ADDR", &cfg.Metrics.Addr)
}
