package config

import (
	"time"
)

// Config is the diagramd configuration file
type Config struct {
	Version int           `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Diagram DiagramConfig `yaml:"diagram"`
	Graph   GraphConfig   `yaml:"graph"`
	Layout  LayoutConfig  `yaml:"layout"`
	Store   StoreConfig   `yaml:"store"`
}

// ServerConfig holds the HTTP and WebSocket listener settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Path is where the WebSocket endpoint is mounted
	Path      string `yaml:"path"`
	StaticDir string `yaml:"static_dir,omitempty"`
	// ClientIdleTimeout is how long a disconnected client's server is kept
	ClientIdleTimeout Duration `yaml:"client_idle_timeout"`
}

// DiagramConfig holds the layout defaults of new diagram servers. Clients
// can override both flags in their model request options.
type DiagramConfig struct {
	Name              string `yaml:"name"`
	NeedsClientLayout *bool  `yaml:"needs_client_layout,omitempty"`
	NeedsServerLayout *bool  `yaml:"needs_server_layout,omitempty"`
}

// ClientLayout returns the effective client layout default
func (d DiagramConfig) ClientLayout() bool {
	return d.NeedsClientLayout != nil && *d.NeedsClientLayout
}

// ServerLayout returns the effective server layout default
func (d DiagramConfig) ServerLayout() bool {
	return d.NeedsServerLayout == nil || *d.NeedsServerLayout
}

// GraphConfig selects the model: a graph file, or a generated graph when
// File is empty
type GraphConfig struct {
	File     string   `yaml:"file,omitempty"`
	Watch    bool     `yaml:"watch"`
	Debounce Duration `yaml:"debounce"`

	Nodes      int     `yaml:"nodes"`
	ExtraEdges int     `yaml:"extra_edges"`
	NodeSize   float64 `yaml:"node_size"`
	Seed       uint64  `yaml:"seed"`
}

// LayoutConfig tunes the force-directed server layout
type LayoutConfig struct {
	Iterations int     `yaml:"iterations"`
	Seed       uint64  `yaml:"seed"`
	Repulsion  float64 `yaml:"repulsion"`
	Rate       float64 `yaml:"rate"`
	Theta      float64 `yaml:"theta"`
}

// StoreConfig holds position store settings
type StoreConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
