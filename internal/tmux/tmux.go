// Package tmux drives the terminal multiplexer hosting agent processes.
//
// Each repository gets one named session; each agent gets one window rooted
// at its worktree. The engine only ever observes agents through this package
// (window liveness, pane capture) and through the status artifacts they
// write.
package tmux

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrSessionNotFound is returned when a capture targets a session or window
// that no longer exists.
var ErrSessionNotFound = errors.New("tmux session or window not found")

// SessionName derives a stable session name from the repository root:
// prefix, project directory name, and a short hash of the full path so two
// checkouts with the same name do not collide.
func SessionName(prefix, root string) string {
	project := filepath.Base(root)
	if project == string(filepath.Separator) || project == "." {
		project = "repo"
	}
	h := fnv.New32a()
	h.Write([]byte(root))
	return fmt.Sprintf("%s-%s-%06x", prefix, project, h.Sum32()&0xffffff)
}

// Manager addresses one tmux session.
type Manager struct {
	session string
}

// NewManager returns a manager for the named session.
func NewManager(session string) *Manager {
	return &Manager{session: session}
}

// Session returns the session name.
func (m *Manager) Session() string {
	return m.session
}

func (m *Manager) target(window string) string {
	return m.session + ":" + window
}

func run(args ...string) (string, error) {
	cmd := exec.Command("tmux", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("tmux %s: %s: %w",
			strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// sessionExists reports whether the session is alive.
func (m *Manager) sessionExists() bool {
	_, err := run("has-session", "-t", m.session)
	return err == nil
}

// EnsureSession creates the detached session if it does not exist yet.
func (m *Manager) EnsureSession() error {
	if m.sessionExists() {
		return nil
	}
	if _, err := run("new-session", "-d", "-s", m.session, "-n", "main"); err != nil {
		return fmt.Errorf("creating session %s: %w", m.session, err)
	}
	return nil
}

// Start opens a window named window rooted at workdir and launches command
// in it. The session is created on demand.
func (m *Manager) Start(window, workdir, command string) error {
	if err := m.EnsureSession(); err != nil {
		return err
	}
	if _, err := run("new-window", "-t", m.session, "-n", window, "-c", workdir); err != nil {
		return fmt.Errorf("creating window %s: %w", window, err)
	}
	if _, err := run("send-keys", "-t", m.target(window), command, "Enter"); err != nil {
		return fmt.Errorf("sending command to %s: %w", window, err)
	}
	return nil
}

// Capture returns the last lines of the window's pane. A missing window
// yields ErrSessionNotFound.
func (m *Manager) Capture(window string, lines int) (string, error) {
	out, err := run("capture-pane", "-t", m.target(window), "-p", "-S", fmt.Sprintf("-%d", lines))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, m.target(window))
	}
	return out, nil
}

// WindowExists reports whether the window is still alive.
func (m *Manager) WindowExists(window string) bool {
	out, err := run("list-windows", "-t", m.session, "-F", "#{window_name}")
	if err != nil {
		return false
	}
	for _, name := range strings.Split(strings.TrimSpace(out), "\n") {
		if name == window {
			return true
		}
	}
	return false
}

// Kill closes the window. Best-effort: a window that is already gone is not
// an error.
func (m *Manager) Kill(window string) error {
	if !m.WindowExists(window) {
		return nil
	}
	if _, err := run("kill-window", "-t", m.target(window)); err != nil {
		return fmt.Errorf("killing window %s: %w", window, err)
	}
	return nil
}

// Attach replaces the pane output streams with the caller's terminal and
// attaches to the window.
func (m *Manager) Attach(window string) error {
	target := m.session
	if window != "" {
		target = m.target(window)
	}
	cmd := exec.Command("tmux", "attach-session", "-t", target)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, target)
	}
	return nil
}
