// Package config provides configuration loading for grove.
//
// Precedence (highest to lowest):
//  1. Environment variables (GROVE_AGENT_PROVIDER, GROVE_HTTP_PORT, ...)
//  2. Repository config file (<repo>/.grove/config.yaml)
//  3. User config file (~/.config/grove/config.yaml)
//  4. Hardcoded defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/grove/internal/logging"
	"github.com/fyrsmithlabs/grove/internal/provider"
)

const envPrefix = "GROVE_"

// Config is the root configuration.
type Config struct {
	Agent AgentConfig    `koanf:"agent"`
	Tmux  TmuxConfig     `koanf:"tmux"`
	HTTP  HTTPConfig     `koanf:"http"`
	Log   logging.Config `koanf:"log"`

	// GitHubToken authenticates pull-request creation. Read from
	// GROVE_GITHUB_TOKEN, falling back to GITHUB_TOKEN; never from the
	// config file.
	GitHubToken string `koanf:"-"`
}

// AgentConfig controls agent launch behavior.
type AgentConfig struct {
	// Provider is the default agent CLI.
	Provider string `koanf:"provider"`
	// ExtraArgs are appended to every provider invocation, before any
	// per-launch passthrough args.
	ExtraArgs []string `koanf:"extra_args"`
	// BranchPrefix prefixes auto-generated branch names.
	BranchPrefix string `koanf:"branch_prefix"`
	// CaptureLines is how much pane scrollback status commands show.
	CaptureLines int `koanf:"capture_lines"`
}

// TmuxConfig controls session naming.
type TmuxConfig struct {
	SessionPrefix string `koanf:"session_prefix"`
}

// HTTPConfig controls the dashboard server.
type HTTPConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Load reads configuration for the repository rooted at root. A missing
// config file is not an error; defaults and environment apply.
func Load(root string) (*Config, error) {
	k := koanf.New(".")

	// User-level config first, then the repository file over it.
	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "grove", "config.yaml"))
	}
	paths = append(paths, filepath.Join(root, ".grove", "config.yaml"))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// GROVE_AGENT_PROVIDER -> agent.provider, GROVE_HTTP_PORT -> http.port.
	// Split on the first underscore only: the section never contains one,
	// the field may (agent.branch_prefix).
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	cfg.GitHubToken = os.Getenv("GROVE_GITHUB_TOKEN")
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Agent.Provider == "" {
		cfg.Agent.Provider = string(provider.Default)
	}
	if cfg.Agent.BranchPrefix == "" {
		cfg.Agent.BranchPrefix = "grove"
	}
	if cfg.Agent.CaptureLines == 0 {
		cfg.Agent.CaptureLines = 100
	}
	if cfg.Tmux.SessionPrefix == "" {
		cfg.Tmux.SessionPrefix = "grove"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "127.0.0.1"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7420
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = logging.NewDefaultConfig().Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = logging.NewDefaultConfig().Format
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := provider.Parse(c.Agent.Provider); err != nil {
		return err
	}
	if c.Agent.CaptureLines < 1 {
		return fmt.Errorf("agent capture_lines must be >= 1, got %d", c.Agent.CaptureLines)
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be in 1..65535, got %d", c.HTTP.Port)
	}
	return c.Log.Validate()
}
