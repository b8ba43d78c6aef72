package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Agent.Provider)
	assert.Equal(t, "grove", cfg.Agent.BranchPrefix)
	assert.Equal(t, 100, cfg.Agent.CaptureLines)
	assert.Equal(t, "grove", cfg.Tmux.SessionPrefix)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 7420, cfg.HTTP.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".grove"), 0o755))
	yaml := []byte("agent:\n  provider: codex\n  capture_lines: 50\n  extra_args: [\"--model\", \"turbo\"]\nhttp:\n  port: 9000\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".grove", "config.yaml"), yaml, 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "codex", cfg.Agent.Provider)
	assert.Equal(t, 50, cfg.Agent.CaptureLines)
	assert.Equal(t, []string{"--model", "turbo"}, cfg.Agent.ExtraArgs)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	// Untouched keys keep their defaults.
	assert.Equal(t, "grove", cfg.Agent.BranchPrefix)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".grove"), 0o755))
	yaml := []byte("agent:\n  provider: codex\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".grove", "config.yaml"), yaml, 0o644))

	t.Setenv("GROVE_AGENT_PROVIDER", "gemini")
	t.Setenv("GROVE_HTTP_PORT", "8080")
	t.Setenv("GROVE_AGENT_BRANCH_PREFIX", "bot")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Agent.Provider)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "bot", cfg.Agent.BranchPrefix)
}

func TestLoad_GitHubToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "fallback")
	t.Setenv("GROVE_GITHUB_TOKEN", "")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "fallback", cfg.GitHubToken)

	t.Setenv("GROVE_GITHUB_TOKEN", "primary")
	cfg, err = Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.GitHubToken)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown provider", "GROVE_AGENT_PROVIDER", "copilot"},
		{"bad port", "GROVE_HTTP_PORT", "70000"},
		{"bad log level", "GROVE_LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}
