// Package config provides configuration management for diagramd.
//
// Config file locations (priority order):
//  1. $DIAGRAMD_CONFIG
//  2. ./diagramd.yaml
//  3. $XDG_CONFIG_HOME/diagramd/config.yaml
//  4. ~/.config/diagramd/config.yaml
//  5. /etc/diagramd/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Path == "" {
		c.Server.Path = "/circlegraph"
	}
	if c.Server.ClientIdleTimeout == 0 {
		c.Server.ClientIdleTimeout = Duration(2 * time.Minute)
	}
	if c.Diagram.Name == "" {
		c.Diagram.Name = "circlegraph"
	}
	if c.Graph.Debounce == 0 {
		c.Graph.Debounce = Duration(500 * time.Millisecond)
	}
	if c.Graph.Nodes == 0 {
		c.Graph.Nodes = 50
	}
	if c.Graph.ExtraEdges == 0 {
		c.Graph.ExtraEdges = 50
	}
	if c.Graph.NodeSize == 0 {
		c.Graph.NodeSize = 60
	}
	if c.Layout.Iterations == 0 {
		c.Layout.Iterations = 1000
	}
	if c.Store.Path == "" {
		c.Store.Path = "./diagramd.db"
	}
}

// Validate reports settings that cannot work
func (c *Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, fmt.Errorf("server.path %q must start with /", c.Server.Path))
	}
	if c.Server.ClientIdleTimeout < 0 {
		errs = append(errs, errors.New("server.client_idle_timeout must not be negative"))
	}
	if c.Graph.Nodes < 0 || c.Graph.ExtraEdges < 0 {
		errs = append(errs, errors.New("graph.nodes and graph.extra_edges must not be negative"))
	}
	if c.Graph.NodeSize < 0 {
		errs = append(errs, errors.New("graph.node_size must not be negative"))
	}
	if c.Graph.Watch && c.Graph.File == "" {
		errs = append(errs, errors.New("graph.watch requires graph.file"))
	}
	if c.Layout.Iterations < 0 {
		errs = append(errs, errors.New("layout.iterations must not be negative"))
	}
	return errors.Join(errs...)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	source := "generated"
	if c.Graph.File != "" {
		source = c.Graph.File
		if c.Graph.Watch {
			source += " (watched)"
		}
	}
	store := c.Store.Path
	if c.Store.Disabled {
		store = "disabled"
	}
	return fmt.Sprintf("listen %s%s, diagram %s (client layout %t, server layout %t), graph %s, store %s",
		c.Server.Addr, c.Server.Path, c.Diagram.Name,
		c.Diagram.ClientLayout(), c.Diagram.ServerLayout(), source, store)
}
