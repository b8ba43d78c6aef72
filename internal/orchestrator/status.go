package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grove/internal/state"
)

// now is a variable so tests can pin timestamps.
var now = time.Now

// StatusUnavailable is the display status when one agent's resolution fails
// during a listing. It is never persisted.
const StatusUnavailable = "unavailable"

// Artifact is the terminal-status file an agent writes when it finishes.
type Artifact struct {
	Status       string   `json:"status"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed,omitempty"`
	Error        *string  `json:"error,omitempty"`
}

// readArtifact loads the agent's terminal-status artifact, if present.
func (o *Orchestrator) readArtifact(id int) (*Artifact, error) {
	data, err := os.ReadFile(o.statusPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading status artifact for agent %d: %w", id, err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parsing status artifact for agent %d: %w", id, err)
	}
	return &art, nil
}

// resolveStatus re-derives an agent's lifecycle status. The artifact is
// authoritative for Completed vs Failed; a missing artifact with a dead
// window degrades to Failed. A terminal registry status is never revisited,
// which keeps resolution monotonic.
func (o *Orchestrator) resolveStatus(a *state.Agent) (state.Status, string, error) {
	if a.Status.Terminal() {
		return a.Status, "", nil
	}

	art, err := o.readArtifact(a.ID)
	if err != nil {
		return "", "", err
	}
	if art != nil {
		switch art.Status {
		case string(state.StatusCompleted):
			return state.StatusCompleted, art.Summary, nil
		case string(state.StatusFailed):
			return state.StatusFailed, art.Summary, nil
		}
		// Unknown artifact content: keep the registry's view.
		return a.Status, "", nil
	}

	if !o.session.WindowExists(a.TmuxWindow) {
		return state.StatusFailed, "window closed unexpectedly", nil
	}
	return state.StatusRunning, "", nil
}

// AgentInfo is an agent record paired with its freshly resolved status.
type AgentInfo struct {
	state.Agent
	ResolvedStatus string `json:"resolved_status"`
	StatusReason   string `json:"status_reason,omitempty"`
}

// List returns every agent with live-resolved status. It takes no lock and
// persists nothing; one agent's resolution failure marks that agent
// unavailable instead of failing the listing.
func (o *Orchestrator) List() ([]AgentInfo, error) {
	reg, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	infos := make([]AgentInfo, 0, len(reg.Agents))
	for _, a := range reg.Agents {
		info := AgentInfo{Agent: *a}
		status, reason, err := o.resolveStatus(a)
		if err != nil {
			o.log.Warn("status resolution failed", zap.Int("id", a.ID), zap.Error(err))
			info.ResolvedStatus = StatusUnavailable
		} else {
			info.ResolvedStatus = string(status)
			info.StatusReason = reason
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Status resolves one agent's status and persists the transition under the
// lock. The completion timestamp is stamped the first time a terminal state
// is observed; later calls find the agent already terminal and change
// nothing.
func (o *Orchestrator) Status(id int) (*AgentInfo, error) {
	var info *AgentInfo
	err := o.store.WithLock(func(reg *state.Registry) error {
		a, err := reg.Get(id)
		if err != nil {
			return err
		}
		status, reason, err := o.resolveStatus(a)
		if err != nil {
			return err
		}
		o.applyResolved(a, status)
		info = &AgentInfo{Agent: *a, ResolvedStatus: string(status), StatusReason: reason}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// applyResolved moves the agent to its freshly resolved status when the
// lifecycle graph allows it, stamping the completion time and closing the
// finished agent's window.
func (o *Orchestrator) applyResolved(a *state.Agent, resolved state.Status) {
	if resolved == a.Status || !state.ValidTransition(a.Status, resolved) {
		return
	}
	a.Status = resolved
	if a.CompletedAt == nil {
		t := now()
		a.CompletedAt = &t
	}
	if err := o.session.Kill(a.TmuxWindow); err != nil {
		o.log.Warn("could not close finished agent's window",
			zap.Int("id", a.ID), zap.Error(err))
	}
}

// Get returns one agent without resolving or persisting anything.
func (o *Orchestrator) Get(id int) (*state.Agent, error) {
	reg, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	a, err := reg.Get(id)
	if err != nil {
		return nil, err
	}
	copied := *a
	return &copied, nil
}

// cleanupArtifacts removes the agent's prompt and status files. Best-effort.
func (o *Orchestrator) cleanupArtifacts(id int) {
	for _, path := range []string{o.promptPath(id), o.statusPath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			o.log.Warn("could not remove artifact", zap.String("path", path), zap.Error(err))
		}
	}
}
