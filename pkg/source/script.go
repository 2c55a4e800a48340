package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// ErrInvalidScript indicates a script failed validation.
var ErrInvalidScript = errors.New("invalid script")

// Step is one scripted update. Delay is waited before the update is sent.
type Step struct {
	Stage   models.Stage  `yaml:"stage"`
	Message string        `yaml:"message"`
	Delay   time.Duration `yaml:"delay,omitempty"`
}

// Script is a named sequence of updates.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Sender publishes an update. Implemented by *Server.
type Sender interface {
	SendUpdate(ctx context.Context, stage models.Stage, message string) error
}

// LoadScript reads and validates a YAML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// Validate checks that the script has steps and that every step is usable.
// Stages outside the crew flow are allowed; they render as unmapped.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScript)
	}
	for i, step := range s.Steps {
		if step.Stage == "" {
			return fmt.Errorf("%w: step %d: stage is required", ErrInvalidScript, i)
		}
		if step.Message == "" {
			return fmt.Errorf("%w: step %d: message is required", ErrInvalidScript, i)
		}
		if step.Delay < 0 {
			return fmt.Errorf("%w: step %d: delay must not be negative", ErrInvalidScript, i)
		}
	}
	return nil
}

// Duration returns the sum of all step delays.
func (s *Script) Duration() time.Duration {
	var total time.Duration
	for _, step := range s.Steps {
		total += step.Delay
	}
	return total
}

// Replay sends every step of script through sender, waiting each step's delay
// first. It stops early with ctx's error when ctx is cancelled.
func Replay(ctx context.Context, sender Sender, script *Script) error {
	log := slog.With("script", script.Name, "steps", len(script.Steps))
	log.Info("Replaying script")

	for i, step := range script.Steps {
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Info("Replay cancelled", "step", i)
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := sender.SendUpdate(ctx, step.Stage, step.Message); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	log.Info("Replay finished")
	return nil
}
