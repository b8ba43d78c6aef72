package tmux

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed")
	}
}

func TestSessionName(t *testing.T) {
	a := SessionName("grove", "/home/alice/proj")
	b := SessionName("grove", "/home/bob/proj")

	assert.True(t, strings.HasPrefix(a, "grove-proj-"))
	assert.True(t, strings.HasPrefix(b, "grove-proj-"))
	// Same project name, different path: names must not collide.
	assert.NotEqual(t, a, b)
	// Stable for the same inputs.
	assert.Equal(t, a, SessionName("grove", "/home/alice/proj"))
}

func TestManager_WindowLifecycle(t *testing.T) {
	requireTmux(t)

	m := NewManager(SessionName("grove-test", t.TempDir()))
	t.Cleanup(func() {
		_, _ = run("kill-session", "-t", m.Session())
	})

	dir := t.TempDir()
	require.NoError(t, m.Start("agent-1", dir, "echo ready; sleep 30"))
	assert.True(t, m.WindowExists("agent-1"))
	assert.False(t, m.WindowExists("agent-2"))

	require.NoError(t, m.Kill("agent-1"))
	assert.False(t, m.WindowExists("agent-1"))

	// Killing an absent window is not an error.
	assert.NoError(t, m.Kill("agent-1"))
}

func TestManager_CaptureMissingWindow(t *testing.T) {
	requireTmux(t)

	m := NewManager(SessionName("grove-test", t.TempDir()))
	_, err := m.Capture("nope", 100)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
