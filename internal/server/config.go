package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration, loadable from a YAML file.
type Config struct {
	Listen          string `yaml:"listen"`
	LogLevel        string `yaml:"log_level"`
	DefaultAnalyzer string `yaml:"default_analyzer"`
	PlanCacheSize   int    `yaml:"plan_cache_size"`
	SearchTimeoutMS int    `yaml:"search_timeout_ms"`
	MaxDocsScored   int    `yaml:"max_docs_scored"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:          ":8080",
		LogLevel:        "info",
		DefaultAnalyzer: "standard",
		PlanCacheSize:   256,
		SearchTimeoutMS: 30_000,
		MaxDocsScored:   100_000,
	}
}

// LoadConfig reads a YAML config file, applying defaults for fields the
// file omits. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SearchTimeout returns the per-request execution deadline.
func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutMS) * time.Millisecond
}
