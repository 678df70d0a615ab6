package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML file over the defaults, then applies environment
// overrides and validates the result. An empty path behaves like Load
// followed by Validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Corpus.Path) == "" {
		errs = append(errs, errors.New("corpus.path is required"))
	}
	if c.Corpus.MinTextLength < 0 {
		errs = append(errs, errors.New("corpus.min_text_length must not be negative"))
	}
	switch strings.ToLower(c.Index.IDFMode) {
	case "", "plain", "smoothed":
	default:
		errs = append(errs, fmt.Errorf("index.idf_mode must be plain or smoothed, got %q", c.Index.IDFMode))
	}
	if c.Index.Workers < 1 {
		errs = append(errs, errors.New("index.workers must be at least 1"))
	}
	if c.Index.DefaultResults < 0 {
		errs = append(errs, errors.New("index.default_results must not be negative"))
	}
	if c.Sources.Reddit.Enabled && c.Sources.Reddit.Subreddit == "" {
		errs = append(errs, errors.New("sources.reddit.subreddit is required when reddit is enabled"))
	}
	if c.Sources.Arxiv.Enabled && c.Sources.Arxiv.Query == "" {
		errs = append(errs, errors.New("sources.arxiv.query is required when arxiv is enabled"))
	}
	if c.Politeness.Burst < 1 {
		errs = append(errs, errors.New("politeness.burst must be at least 1"))
	}
	if c.Politeness.RequestTimeout <= 0 {
		errs = append(errs, errors.New("politeness.request_timeout must be positive"))
	}

	return errors.Join(errs...)
}
