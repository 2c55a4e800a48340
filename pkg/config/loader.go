package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/crewviz/pkg/masking"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "crewviz.yaml"

// CrewvizYAMLConfig represents the complete crewviz.yaml file structure
type CrewvizYAMLConfig struct {
	Source *SourceConfig `yaml:"source"`
	Server *ServerConfig `yaml:"server"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load crewviz.yaml from configDir (a missing file means defaults)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user values onto built-in defaults
//  5. Validate all configuration
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"source_url", masking.URL(cfg.Source.URL),
		"reconnect_delay", cfg.Source.ReconnectDelay,
		"max_reconnect_attempts", cfg.Source.MaxReconnectAttempts,
		"allowed_ws_origins", len(cfg.Server.AllowedWSOrigins))

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	userConfig, err := loader.loadCrewvizYAML()
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			return nil, NewLoadError(FileName, err)
		}
		slog.Info("No configuration file found, using defaults",
			"path", filepath.Join(configDir, FileName))
		userConfig = &CrewvizYAMLConfig{}
	}

	// Start with defaults, then merge user config on top to preserve unset defaults
	source := DefaultSourceConfig()
	if userConfig.Source != nil {
		if err := mergo.Merge(source, userConfig.Source, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge source config: %w", err)
		}
	}

	server := DefaultServerConfig()
	if userConfig.Server != nil {
		if err := mergo.Merge(server, userConfig.Server, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge server config: %w", err)
		}
	}

	return &Config{
		configDir: configDir,
		Source:    source,
		Server:    server,
	}, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// ExpandEnv passes through original data on template errors, leaving
	// the YAML parser to report them.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadCrewvizYAML() (*CrewvizYAMLConfig, error) {
	var config CrewvizYAMLConfig
	if err := l.loadYAML(FileName, &config); err != nil {
		return nil, err
	}
	return &config, nil
}
