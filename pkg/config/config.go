// Package config loads the process-wide, read-only-after-init
// configuration for the cluster pool control plane.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from a YAML file.
type Config struct {
	ClusterAPIPortStart int      `yaml:"clusterApiPortStart"`
	ComposeFilePath     string   `yaml:"composeFilePath"`
	ConsensusPlugins    []string `yaml:"consensusPlugins"`
	ConsensusModes      []string `yaml:"consensusModes"`
	ClusterSizes        []int    `yaml:"clusterSizes"`
	DataDir             string   `yaml:"dataDir"`

	// ReplenishWorkers bounds the background recycle pool (pkg/replenish).
	ReplenishWorkers int `yaml:"replenishWorkers"`
	// ReplenishQueueDepth bounds how many recycle jobs may queue before
	// Release starts dropping them.
	ReplenishQueueDepth int `yaml:"replenishQueueDepth"`
}

// Defaults returns a Config with the values this module ships with when a
// field is left unset in the loaded file.
func Defaults() Config {
	return Config{
		ClusterAPIPortStart: 30000,
		ComposeFilePath:     "/etc/clusterpool/compose-template.yaml",
		ConsensusPlugins:    []string{"pbft", "solo", "noops"},
		ConsensusModes:      []string{"batch", "classic"},
		ClusterSizes:        []int{1, 4, 7, 10},
		DataDir:             "/var/lib/clusterpool",
		ReplenishWorkers:    4,
		ReplenishQueueDepth: 64,
	}
}

// Load reads and parses the YAML configuration file at path, filling
// unset fields from Defaults and validating the allowed enumerations.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Per-deployment paths may be overridden without editing the file.
	if v := os.Getenv("CLUSTERPOOL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CLUSTERPOOL_COMPOSE_FILE"); v != "" {
		cfg.ComposeFilePath = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for internal consistency.
func (c Config) Validate() error {
	if c.ClusterAPIPortStart <= 0 || c.ClusterAPIPortStart >= 64000 {
		return fmt.Errorf("clusterApiPortStart out of range: %d", c.ClusterAPIPortStart)
	}
	if len(c.ConsensusPlugins) == 0 {
		return fmt.Errorf("consensusPlugins must not be empty")
	}
	if len(c.ConsensusModes) == 0 {
		return fmt.Errorf("consensusModes must not be empty")
	}
	if len(c.ClusterSizes) == 0 {
		return fmt.Errorf("clusterSizes must not be empty")
	}
	if c.ReplenishWorkers <= 0 {
		return fmt.Errorf("replenishWorkers must be positive")
	}
	if c.ReplenishQueueDepth <= 0 {
		return fmt.Errorf("replenishQueueDepth must be positive")
	}
	return nil
}

// ValidPlugin reports whether plugin is one of the configured consensus
// plugins.
func (c Config) ValidPlugin(plugin string) bool {
	return contains(c.ConsensusPlugins, plugin)
}

// ValidMode reports whether mode is one of the configured consensus
// modes.
func (c Config) ValidMode(mode string) bool {
	return contains(c.ConsensusModes, mode)
}

// ValidSize reports whether size is one of the configured cluster sizes.
func (c Config) ValidSize(size int) bool {
	for _, s := range c.ClusterSizes {
		if s == size {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
