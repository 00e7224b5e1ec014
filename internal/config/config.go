// Package config loads the AEMET OpenData endpoint templates and credentials.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvAPIKey is the environment variable holding the AEMET OpenData API key.
const EnvAPIKey = "AEMET_API_KEY"

// Config holds the OpenData base URL and per-category endpoint templates.
// Templates carry named placeholders ({idema}, {fechaIniStr}, {fechaFinStr},
// {parametro}, {area}) substituted at request time.
type Config struct {
	URLBase   string    `yaml:"url_base"`
	Endpoints Endpoints `yaml:"endpoints"`

	// APIKey is read from the environment, never from the file.
	APIKey string `yaml:"-"`
}

// Endpoints groups the endpoint path templates by data category.
type Endpoints struct {
	Stations    StationEndpoints     `yaml:"stations"`
	Observation ObservationEndpoints `yaml:"observation"`
	Warnings    WarningEndpoints     `yaml:"warnings"`
}

// StationEndpoints holds templates for station-scoped climatology data.
type StationEndpoints struct {
	InventoryAll  string `yaml:"inventory_all"`
	Climatology   string `yaml:"climatology"`
	NormalValues  string `yaml:"normal_values"`
	ExtremeValues string `yaml:"extreme_values"`
}

// ObservationEndpoints holds templates for conventional observation data.
type ObservationEndpoints struct {
	All string `yaml:"all"`
}

// WarningEndpoints holds templates for CAP warning bundles.
type WarningEndpoints struct {
	Current string `yaml:"current"`
}

// Load reads the YAML endpoint document at path and the API key from the
// environment.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	cfg.APIKey = os.Getenv(EnvAPIKey)
	return cfg, nil
}

// Parse decodes and validates a YAML endpoint document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.URLBase == "" {
		return nil, errors.New("url_base is required")
	}
	if cfg.Endpoints.Stations.InventoryAll == "" {
		return nil, errors.New("endpoints.stations.inventory_all is required")
	}
	if cfg.Endpoints.Observation.All == "" {
		return nil, errors.New("endpoints.observation.all is required")
	}
	if cfg.Endpoints.Warnings.Current == "" {
		return nil, errors.New("endpoints.warnings.current is required")
	}

	cfg.URLBase = strings.TrimSuffix(cfg.URLBase, "/")
	return &cfg, nil
}

// URL expands an endpoint template with the given placeholder values and
// appends the API key query parameter. Placeholder values are path-escaped.
func (c *Config) URL(template string, params map[string]string) string {
	path := template
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return c.URLBase + path + "/?api_key=" + url.QueryEscape(c.APIKey)
}
