package config

import (
	"fmt"
	"net/url"
	"path"
)

// ConfigValidator validates configuration with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll validates every section (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateSource(); err != nil {
		return fmt.Errorf("source validation failed: %w", err)
	}

	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateSource() error {
	s := v.cfg.Source
	if s == nil {
		return NewValidationError("source", "", fmt.Errorf("%w: source configuration is nil", ErrValidationFailed))
	}

	if s.URL == "" {
		return NewValidationError("source", "url", ErrMissingRequiredField)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return NewValidationError("source", "url", fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return NewValidationError("source", "url", fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrInvalidValue, u.Scheme))
	}
	if u.Host == "" {
		return NewValidationError("source", "url", fmt.Errorf("%w: host is required", ErrInvalidValue))
	}

	if s.ReconnectDelay <= 0 {
		return NewValidationError("source", "reconnect_delay", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if s.MaxReconnectAttempts < 0 {
		return NewValidationError("source", "max_reconnect_attempts", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if s.ReadLimit <= 0 {
		return NewValidationError("source", "read_limit", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	return nil
}

func (v *ConfigValidator) validateServer() error {
	s := v.cfg.Server
	if s == nil {
		return NewValidationError("server", "", fmt.Errorf("%w: server configuration is nil", ErrValidationFailed))
	}

	if s.WriteTimeout <= 0 {
		return NewValidationError("server", "write_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if s.ShutdownTimeout <= 0 {
		return NewValidationError("server", "shutdown_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	for i, pattern := range s.AllowedWSOrigins {
		if pattern == "" {
			return NewValidationError("server", fmt.Sprintf("allowed_ws_origins[%d]", i), ErrMissingRequiredField)
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return NewValidationError("server", fmt.Sprintf("allowed_ws_origins[%d]", i),
				fmt.Errorf("%w: bad pattern %q: %v", ErrInvalidValue, pattern, err))
		}
	}

	return nil
}
