package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Source: DefaultSourceConfig(),
		Server: DefaultServerConfig(),
	}
}

func TestValidateAll(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		field   string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "wss url",
			mutate: func(c *Config) { c.Source.URL = "wss://crew.example.com/stream" },
		},
		{
			name:   "zero reconnect attempts",
			mutate: func(c *Config) { c.Source.MaxReconnectAttempts = 0 },
		},
		{
			name:    "nil source",
			mutate:  func(c *Config) { c.Source = nil },
			wantErr: ErrValidationFailed,
		},
		{
			name:    "empty url",
			mutate:  func(c *Config) { c.Source.URL = "" },
			wantErr: ErrMissingRequiredField,
			field:   "url",
		},
		{
			name:    "http scheme",
			mutate:  func(c *Config) { c.Source.URL = "http://localhost:8765" },
			wantErr: ErrInvalidValue,
			field:   "url",
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Source.URL = "ws://" },
			wantErr: ErrInvalidValue,
			field:   "url",
		},
		{
			name:    "zero reconnect delay",
			mutate:  func(c *Config) { c.Source.ReconnectDelay = 0 },
			wantErr: ErrInvalidValue,
			field:   "reconnect_delay",
		},
		{
			name:    "negative reconnect attempts",
			mutate:  func(c *Config) { c.Source.MaxReconnectAttempts = -1 },
			wantErr: ErrInvalidValue,
			field:   "max_reconnect_attempts",
		},
		{
			name:    "zero read limit",
			mutate:  func(c *Config) { c.Source.ReadLimit = 0 },
			wantErr: ErrInvalidValue,
			field:   "read_limit",
		},
		{
			name:    "nil server",
			mutate:  func(c *Config) { c.Server = nil },
			wantErr: ErrValidationFailed,
		},
		{
			name:    "zero write timeout",
			mutate:  func(c *Config) { c.Server.WriteTimeout = 0 },
			wantErr: ErrInvalidValue,
			field:   "write_timeout",
		},
		{
			name:    "empty origin pattern",
			mutate:  func(c *Config) { c.Server.AllowedWSOrigins = []string{"ok.example.com", ""} },
			wantErr: ErrMissingRequiredField,
			field:   "allowed_ws_origins[1]",
		},
		{
			name:    "malformed origin pattern",
			mutate:  func(c *Config) { c.Server.AllowedWSOrigins = []string{"[bad"} },
			wantErr: ErrInvalidValue,
			field:   "allowed_ws_origins[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			if tt.field != "" {
				var valErr *ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, tt.field, valErr.Field)
			}
		})
	}
}
