package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no bizcrawl.yaml is found
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.MaxPages != 1 || cfg.Search.ReviewCount != 5 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Site.BaseURL != "https://www.yelp.com" {
		t.Errorf("unexpected base url %q", cfg.Site.BaseURL)
	}
	if cfg.Fetch.Timeout != 30*time.Second || cfg.Fetch.MaxRedirects != 10 || cfg.Fetch.MaxRetries != 2 {
		t.Errorf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Fetch.RequestsPerSecond != 2 || cfg.Fetch.Jitter != 0.2 || cfg.Fetch.Concurrency != 4 {
		t.Errorf("unexpected pacing defaults: %+v", cfg.Fetch)
	}
	if len(cfg.Fetch.UserAgents) != 1 || cfg.Fetch.UserAgents[0] != "bizcrawl/1.0" {
		t.Errorf("unexpected user agents %v", cfg.Fetch.UserAgents)
	}
	if cfg.Output.Backend != "json" || cfg.Output.Path != "businesses.jsonl" {
		t.Errorf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}

	// Category and location have no defaults.
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error without category and location")
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
search:
  category: Contractors
  location: San Francisco, CA
  max_pages: 3
fetch:
  timeout: 5s
  user_agents:
    - agent-one
    - agent-two
output:
  backend: sqlite
  path: crawl.db
log:
  level: debug
  format: json
`
	if err := os.WriteFile(filepath.Join(dir, "bizcrawl.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.Category != "Contractors" || cfg.Search.Location != "San Francisco, CA" || cfg.Search.MaxPages != 3 {
		t.Errorf("unexpected search config: %+v", cfg.Search)
	}
	if cfg.Fetch.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Fetch.Timeout)
	}
	if len(cfg.Fetch.UserAgents) != 2 {
		t.Errorf("expected 2 user agents, got %v", cfg.Fetch.UserAgents)
	}
	if cfg.Output.Backend != "sqlite" || cfg.Log.Format != "json" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	// Defaults still apply for unset values
	if cfg.Search.ReviewCount != 5 {
		t.Errorf("expected default review count, got %d", cfg.Search.ReviewCount)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadExplicitFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())

	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("search:\n  category: Plumbers\n  max_pages: 2\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("BIZCRAWL_SEARCH_MAX_PAGES", "7")
	t.Setenv("BIZCRAWL_SEARCH_LOCATION", "Austin, TX")

	v := viper.New()
	v.SetConfigFile(path)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.Category != "Plumbers" {
		t.Errorf("expected category from file, got %q", cfg.Search.Category)
	}
	if cfg.Search.MaxPages != 7 {
		t.Errorf("expected env to override file, got %d", cfg.Search.MaxPages)
	}
	if cfg.Search.Location != "Austin, TX" {
		t.Errorf("expected location from env, got %q", cfg.Search.Location)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(v); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Search: SearchConfig{Category: "Contractors", Location: "SF", MaxPages: 1, ReviewCount: 5},
		Fetch:  FetchConfig{Jitter: 0.2},
		Output: OutputConfig{Backend: "csv", Path: "out.csv"},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"blank category", func(c *Config) { c.Search.Category = "  " }, "search.category"},
		{"zero pages", func(c *Config) { c.Search.MaxPages = 0 }, "search.max_pages"},
		{"negative reviews", func(c *Config) { c.Search.ReviewCount = -1 }, "search.review_count"},
		{"unknown backend", func(c *Config) { c.Output.Backend = "mongo" }, "output.backend"},
		{"missing path", func(c *Config) { c.Output.Path = "" }, "output.path"},
		{"jitter out of range", func(c *Config) { c.Fetch.Jitter = 1.5 }, "fetch.jitter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("chain failed", "stage", "reviews")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"stage":"reviews"`) {
		t.Errorf("expected JSON attributes, got %s", out)
	}

	if _, err := NewLogger(LogConfig{Level: "loud"}, &buf); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewLogger(LogConfig{Level: "info", Format: "xml"}, &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}
