// Package config holds the application configuration: where the capture
// process lives, where user avatar models are kept, and the transport
// tuning knobs. Values come from a JSON config file overridden by
// RETARGET_* environment variables; fields omitted from both fall back to
// the Get* defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
)

// appDir is the per-user directory name under the platform config root.
const appDir = "vrm-retarget"

// Config is the root configuration. Pointer fields distinguish "unset" from
// zero values; read through the Get* accessors.
type Config struct {
	// Capture process
	TrackerExecutable *string `json:"tracker_executable,omitempty" env:"RETARGET_TRACKER_EXECUTABLE"`
	TrackerScript     *string `json:"tracker_script,omitempty" env:"RETARGET_TRACKER_SCRIPT"`

	// Avatar models
	ModelDir     *string `json:"model_dir,omitempty" env:"RETARGET_MODEL_DIR"`
	DefaultModel *string `json:"default_model,omitempty" env:"RETARGET_DEFAULT_MODEL"`

	// Transport
	QueueSize     *int    `json:"queue_size,omitempty" env:"RETARGET_QUEUE_SIZE"`
	ShutdownGrace *string `json:"shutdown_grace,omitempty" env:"RETARGET_SHUTDOWN_GRACE"` // duration string like "3s"
}

// DefaultPath returns the canonical config file location under the
// platform's per-user config root.
func DefaultPath() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}
	return filepath.Join(root, appDir, "config.json"), nil
}

// Load reads the config file at path (a missing file is not an error),
// applies environment overrides and validates the result. An empty path
// skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// first run; defaults plus environment
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks that set fields hold usable values.
func (c *Config) Validate() error {
	if c.QueueSize != nil && *c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", *c.QueueSize)
	}
	if c.ShutdownGrace != nil && *c.ShutdownGrace != "" {
		if _, err := time.ParseDuration(*c.ShutdownGrace); err != nil {
			return fmt.Errorf("invalid shutdown_grace %q: %w", *c.ShutdownGrace, err)
		}
	}
	return nil
}

// GetTrackerExecutable returns the capture process executable, defaulting to
// the platform Python interpreter name.
func (c *Config) GetTrackerExecutable() string {
	if c.TrackerExecutable != nil && *c.TrackerExecutable != "" {
		return *c.TrackerExecutable
	}
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// GetTrackerScript returns the tracker script path passed to the executable.
func (c *Config) GetTrackerScript() string {
	if c.TrackerScript != nil && *c.TrackerScript != "" {
		return *c.TrackerScript
	}
	return "tools/mediapipe_tracker.py"
}

// GetModelDir returns the user avatar model directory.
func (c *Config) GetModelDir() string {
	if c.ModelDir != nil && *c.ModelDir != "" {
		return *c.ModelDir
	}
	root, err := os.UserConfigDir()
	if err != nil {
		return "vrm_models"
	}
	return filepath.Join(root, appDir, "models")
}

// GetDefaultModel returns the model filename loaded at startup.
func (c *Config) GetDefaultModel() string {
	if c.DefaultModel != nil && *c.DefaultModel != "" {
		return *c.DefaultModel
	}
	return "model.vrm"
}

// GetQueueSize returns the transport queue capacity.
func (c *Config) GetQueueSize() int {
	if c.QueueSize == nil {
		return 8
	}
	return *c.QueueSize
}

// GetShutdownGrace returns how long to wait for the capture process to exit
// before force-killing it.
func (c *Config) GetShutdownGrace() time.Duration {
	if c.ShutdownGrace == nil || *c.ShutdownGrace == "" {
		return 3 * time.Second
	}
	d, err := time.ParseDuration(*c.ShutdownGrace)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// EnsureModelDir creates the model directory when missing.
func (c *Config) EnsureModelDir() error {
	if err := os.MkdirAll(c.GetModelDir(), 0o755); err != nil {
		return fmt.Errorf("config: create model dir: %w", err)
	}
	return nil
}
