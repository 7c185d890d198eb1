// Package config holds the daemon's runtime configuration: listening
// port, log sinks, and the worker-mode flags threaded down from the
// command line.
package config

import (
	"fmt"
	"os"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"

	"github.com/srgg/rpcd/internal/protoconst"
)

// Config holds the daemon's tunables. Struct-tag defaults are applied
// by DefaultConfig; an optional YAML file can override any subset of
// them (spec.md §4.9/SPEC_FULL.md Ambient Stack, Configuration).
type Config struct {
	Port       int      `yaml:"port" default:"5910"`
	Outputs    []string `yaml:"outputs"`
	DirectMode bool     `yaml:"direct_mode" default:"false"`
}

// DefaultConfig returns a Config with every field set from its
// `default` struct tag.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	if cfg.Port == 0 {
		cfg.Port = protoconst.DefaultPort
	}
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []string{"stdout"}
	}
	return cfg
}

// LoadYAML overlays path's contents onto a copy of cfg, returning the
// merged result. Only fields present in the file are overridden.
func LoadYAML(cfg *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	merged := *cfg
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &merged, nil
}
