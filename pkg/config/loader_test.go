package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configDir := t.TempDir()
	err := os.WriteFile(filepath.Join(configDir, FileName), []byte(content), 0644)
	require.NoError(t, err)
	return configDir
}

func TestInitialize(t *testing.T) {
	t.Setenv("TEST_SOURCE_HOST", "crew.internal")

	configDir := writeConfig(t, `
source:
  url: ws://{{.TEST_SOURCE_HOST}}:9000
  reconnect_delay: 500ms
  max_reconnect_attempts: 2
server:
  allowed_ws_origins:
    - "*.example.com"
  write_timeout: 3s
`)

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)

	assert.Equal(t, configDir, cfg.ConfigDir())
	assert.Equal(t, "ws://crew.internal:9000", cfg.Source.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.Source.ReconnectDelay)
	assert.Equal(t, 2, cfg.Source.MaxReconnectAttempts)
	assert.Equal(t, []string{"*.example.com"}, cfg.Server.AllowedWSOrigins)
	assert.Equal(t, 3*time.Second, cfg.Server.WriteTimeout)

	// Unset values keep their defaults.
	assert.Equal(t, DefaultSourceConfig().ReadLimit, cfg.Source.ReadLimit)
	assert.Equal(t, DefaultServerConfig().ShutdownTimeout, cfg.Server.ShutdownTimeout)

	sc := cfg.StreamConfig()
	assert.Equal(t, cfg.Source.URL, sc.URL)
	assert.Equal(t, 500*time.Millisecond, sc.ReconnectDelay)
	assert.Equal(t, 2, sc.MaxReconnectAttempts)
}

func TestInitializeMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8765", cfg.Source.URL)
	assert.Equal(t, 3*time.Second, cfg.Source.ReconnectDelay)
	assert.Equal(t, 5, cfg.Source.MaxReconnectAttempts)
	assert.Empty(t, cfg.Server.AllowedWSOrigins)
}

func TestInitializeMissingDirectoryUsesDefaults(t *testing.T) {
	cfg, err := Initialize(context.Background(), "/nonexistent/directory")
	require.NoError(t, err)
	assert.Equal(t, DefaultSourceConfig(), cfg.Source)
}

func TestInitializeEmptyFile(t *testing.T) {
	cfg, err := Initialize(context.Background(), writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), cfg.Server)
}

func TestInitializeInvalidYAML(t *testing.T) {
	_, err := Initialize(context.Background(), writeConfig(t, "source: [unclosed"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
	assert.True(t, errors.Is(err, ErrInvalidYAML))

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, FileName, loadErr.File)
}

func TestInitializeValidationFailure(t *testing.T) {
	_, err := Initialize(context.Background(), writeConfig(t, `
source:
  url: http://localhost:8765
`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.True(t, errors.Is(err, ErrInvalidValue))

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "source", valErr.Section)
	assert.Equal(t, "url", valErr.Field)
}

func TestInitializeShippedConfig(t *testing.T) {
	cfg, err := Initialize(context.Background(), filepath.Join("..", "..", "deploy", "config"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSourceConfig(), cfg.Source)
	assert.Equal(t, []string{"localhost:*", "127.0.0.1:*"}, cfg.Server.AllowedWSOrigins)
}
