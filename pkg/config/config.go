package config

import (
	"time"

	"github.com/codeready-toolchain/crewviz/pkg/stream"
)

// Config is the umbrella configuration object returned by Initialize()
// and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// Message source connection settings
	Source *SourceConfig

	// HTTP / WebSocket server settings
	Server *ServerConfig
}

// Initialize is defined in loader.go

// SourceConfig controls the client connection to the message source.
type SourceConfig struct {
	// URL is the WebSocket endpoint of the message source.
	URL string `yaml:"url"`

	// ReconnectDelay is the fixed wait between a close and the next attempt.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// MaxReconnectAttempts caps automatic reconnects. Zero in YAML keeps the default.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`

	// ReadLimit is the largest frame accepted from the source, in bytes.
	ReadLimit int64 `yaml:"read_limit"`
}

// ServerConfig controls the dashboard HTTP server.
type ServerConfig struct {
	// AllowedWSOrigins are extra origin patterns accepted on /ws, on top of
	// same-host requests. Patterns follow path.Match, e.g. "*.example.com".
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`

	// WriteTimeout bounds each WebSocket send to a dashboard client.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultSourceConfig returns the built-in source defaults.
func DefaultSourceConfig() *SourceConfig {
	return &SourceConfig{
		URL:                  stream.DefaultURL,
		ReconnectDelay:       stream.DefaultReconnectDelay,
		MaxReconnectAttempts: stream.DefaultMaxReconnectAttempts,
		ReadLimit:            1 << 20,
	}
}

// DefaultServerConfig returns the built-in server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// StreamConfig returns the channel settings derived from the source section.
func (c *Config) StreamConfig() stream.Config {
	return stream.Config{
		URL:                  c.Source.URL,
		ReconnectDelay:       c.Source.ReconnectDelay,
		MaxReconnectAttempts: c.Source.MaxReconnectAttempts,
	}
}
