// Package config provides configuration loading and management for RoboMCP.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete RoboMCP configuration
type Config struct {
	Taxonomy TaxonomyConfig `yaml:"taxonomy"`
	Services ServicesConfig `yaml:"services"`
	NATS     NATSConfig     `yaml:"nats"`
	HTTP     HTTPConfig     `yaml:"http"`
	Tools    ToolsConfig    `yaml:"tools"`
	Enrich   EnrichConfig   `yaml:"enrich"`
}

// TaxonomyConfig configures the entity type model
type TaxonomyConfig struct {
	// Source is the model source: "embedded" or a YAML file path
	Source string `yaml:"source"`
	// Version fetches a specific upstream model release instead of the
	// embedded subset (mutually exclusive with a file source)
	Version string `yaml:"version"`
}

// ServicesConfig configures the upstream resolution services
type ServicesConfig struct {
	// NameResolverURL is the Name Resolution Service endpoint
	NameResolverURL string `yaml:"name_resolver_url"`
	// NodeNormalizerURL is the Node Normalization Service endpoint
	NodeNormalizerURL string `yaml:"node_normalizer_url"`
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration `yaml:"timeout"`
	// MaxAttempts caps retries on transient upstream failures
	MaxAttempts int `yaml:"max_attempts"`
	// LookupLimit is the default number of name matches to request
	LookupLimit int `yaml:"lookup_limit"`
}

// NATSConfig configures the NATS connection for the tool host
type NATSConfig struct {
	// URL is the NATS server URL (empty = tool host disabled, HTTP only)
	URL string `yaml:"url"`
	// Stream is the JetStream stream carrying tool traffic
	Stream string `yaml:"stream"`
}

// HTTPConfig configures the HTTP API surface
type HTTPConfig struct {
	// Addr is the listen address for the API server
	Addr string `yaml:"addr"`
	// Prefix is the path prefix for API routes
	Prefix string `yaml:"prefix"`
	// MetricsAddr is the listen address for Prometheus metrics
	// (empty = serve metrics on the API listener)
	MetricsAddr string `yaml:"metrics_addr"`
}

// ToolsConfig restricts which tools the NATS host serves
type ToolsConfig struct {
	// Allowlist names the tools to register; empty means all tools
	Allowlist []string `yaml:"allowlist"`
}

// EnrichConfig configures CSV enrichment defaults
type EnrichConfig struct {
	// NameColumn is the column holding the entity name
	NameColumn string `yaml:"name_column"`
	// WatchDebounce is the quiet period before a changed file is re-enriched
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Taxonomy: TaxonomyConfig{
			Source: "embedded",
		},
		Services: ServicesConfig{
			NameResolverURL:   "https://name-resolution-sri.renci.org",
			NodeNormalizerURL: "https://nodenormalization-sri.renci.org",
			Timeout:           30 * time.Second,
			MaxAttempts:       3,
			LookupLimit:       5,
		},
		NATS: NATSConfig{
			URL:    "",
			Stream: "AGENT",
		},
		HTTP: HTTPConfig{
			Addr:   ":8080",
			Prefix: "/api/v1",
		},
		Enrich: EnrichConfig{
			NameColumn:    "name",
			WatchDebounce: 2 * time.Second,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Services.NameResolverURL == "" {
		return fmt.Errorf("services.name_resolver_url is required")
	}
	if c.Services.NodeNormalizerURL == "" {
		return fmt.Errorf("services.node_normalizer_url is required")
	}
	if c.Services.Timeout <= 0 {
		return fmt.Errorf("services.timeout must be positive")
	}
	if c.Services.MaxAttempts < 1 {
		return fmt.Errorf("services.max_attempts must be at least 1")
	}
	if c.Taxonomy.Version != "" && c.Taxonomy.Source != "" && c.Taxonomy.Source != "embedded" {
		return fmt.Errorf("taxonomy.source and taxonomy.version are mutually exclusive")
	}
	if c.NATS.Stream == "" {
		return fmt.Errorf("nats.stream is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Taxonomy
	if other.Taxonomy.Source != "" {
		c.Taxonomy.Source = other.Taxonomy.Source
	}
	if other.Taxonomy.Version != "" {
		c.Taxonomy.Version = other.Taxonomy.Version
	}

	// Services
	if other.Services.NameResolverURL != "" {
		c.Services.NameResolverURL = other.Services.NameResolverURL
	}
	if other.Services.NodeNormalizerURL != "" {
		c.Services.NodeNormalizerURL = other.Services.NodeNormalizerURL
	}
	if other.Services.Timeout != 0 {
		c.Services.Timeout = other.Services.Timeout
	}
	if other.Services.MaxAttempts != 0 {
		c.Services.MaxAttempts = other.Services.MaxAttempts
	}
	if other.Services.LookupLimit != 0 {
		c.Services.LookupLimit = other.Services.LookupLimit
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Stream != "" {
		c.NATS.Stream = other.NATS.Stream
	}

	// HTTP
	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}
	if other.HTTP.Prefix != "" {
		c.HTTP.Prefix = other.HTTP.Prefix
	}
	if other.HTTP.MetricsAddr != "" {
		c.HTTP.MetricsAddr = other.HTTP.MetricsAddr
	}

	// Tools
	if len(other.Tools.Allowlist) > 0 {
		c.Tools.Allowlist = other.Tools.Allowlist
	}

	// Enrich
	if other.Enrich.NameColumn != "" {
		c.Enrich.NameColumn = other.Enrich.NameColumn
	}
	if other.Enrich.WatchDebounce != 0 {
		c.Enrich.WatchDebounce = other.Enrich.WatchDebounce
	}
}
