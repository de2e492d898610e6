package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Site    SiteConfig    `yaml:"site" mapstructure:"site"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SearchConfig selects what is crawled.
type SearchConfig struct {
	Category    string `yaml:"category" mapstructure:"category"`
	Location    string `yaml:"location" mapstructure:"location"`
	MaxPages    int    `yaml:"max_pages" mapstructure:"max_pages"`
	ReviewCount int    `yaml:"review_count" mapstructure:"review_count"`
}

// SiteConfig points the crawler at a directory origin.
type SiteConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FetchConfig configures the transport and the engine.
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRedirects      int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Jitter            float64       `yaml:"jitter" mapstructure:"jitter"`
	Concurrency       int           `yaml:"concurrency" mapstructure:"concurrency"`
	UserAgents        []string      `yaml:"user_agents" mapstructure:"user_agents"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// OutputConfig selects the record sink. Path is a file path for json, csv
// and sqlite, and a DSN for postgres.
type OutputConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// MetricsConfig configures the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Backends lists the accepted output.backend values.
var Backends = []string{"json", "csv", "sqlite", "postgres"}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("search.category", "")
	v.SetDefault("search.location", "")
	v.SetDefault("search.max_pages", 1)
	v.SetDefault("search.review_count", 5)
	v.SetDefault("site.base_url", "https://www.yelp.com")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_redirects", 10)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.requests_per_second", 2.0)
	v.SetDefault("fetch.jitter", 0.2)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.user_agents", []string{"bizcrawl/1.0"})
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("output.backend", "json")
	v.SetDefault("output.path", "businesses.jsonl")
	v.SetDefault("metrics.port", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from defaults, an optional file and the
// environment into a Config. Flags must already be bound to v. When no
// config file was set on v, bizcrawl.yaml in the working directory is used
// if present.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("bizcrawl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BIZCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings a crawl cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Search.Category) == "" {
		errs = append(errs, errors.New("search.category is required"))
	}
	if strings.TrimSpace(c.Search.Location) == "" {
		errs = append(errs, errors.New("search.location is required"))
	}
	if c.Search.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("search.max_pages must be at least 1, got %d", c.Search.MaxPages))
	}
	if c.Search.ReviewCount < 0 {
		errs = append(errs, fmt.Errorf("search.review_count must not be negative, got %d", c.Search.ReviewCount))
	}
	if err := c.ValidateOutput(); err != nil {
		errs = append(errs, err)
	}
	if c.Fetch.Jitter < 0 || c.Fetch.Jitter > 1 {
		errs = append(errs, fmt.Errorf("fetch.jitter must be between 0 and 1, got %v", c.Fetch.Jitter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateOutput checks only the sink settings, for commands that read
// stored records.
func (c *Config) ValidateOutput() error {
	for _, b := range Backends {
		if c.Output.Backend == b {
			if c.Output.Path == "" {
				return errors.New("output.path is required")
			}
			return nil
		}
	}
	return fmt.Errorf("output.backend %q is not one of %s", c.Output.Backend, strings.Join(Backends, ", "))
}

// NewLogger builds a slog.Logger writing to w.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("config: parse log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("config: unknown log format %q", cfg.Format)
	}
}
