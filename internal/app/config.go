package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Color modes accepted by Config.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// StateDir is the directory under the root holding the lock and the
// generated-files list.
const StateDir = ".burstbuild"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Root      string   // directory targets are bound against
	Manifests []string // hcl files or directories
	Targets   []string // targets to update; manifest defaults when empty

	Jobs      int
	Timeout   time.Duration
	Force     bool
	KeepGoing bool
	QuitQuick bool
	NoExec    bool

	EnvFile   string
	ReportURL string

	LogFormat       string
	LogLevel        string
	Color           string
	HealthcheckPort int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", cfg.Root, err)
	}
	cfg.Root = root
	if len(cfg.Manifests) == 0 {
		cfg.Manifests = []string{root}
	}

	if cfg.Jobs < 0 {
		return nil, errors.New("jobs must not be negative")
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = 1
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("timeout must not be negative")
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	switch cfg.Color {
	case "":
		cfg.Color = ColorAuto
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return nil, fmt.Errorf("invalid color mode %q: must be 'auto', 'always', or 'never'", cfg.Color)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}

	return &cfg, nil
}

func (c *Config) stateDir() string { return filepath.Join(c.Root, StateDir) }
