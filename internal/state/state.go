// Package state owns the durable agent registry.
//
// The registry is a single JSON document under the repository's state
// directory. It holds a monotonic id counter and the ordered list of agent
// records. All mutation goes through Store.WithLock, which serializes
// concurrent grove invocations with an exclusive cross-process file lock and
// persists with a write-to-temporary-then-rename cycle.
package state

import (
	"errors"
	"fmt"
	"time"
)

// Errors for registry operations.
var (
	ErrAgentNotFound   = errors.New("agent not found")
	ErrCorruptState    = errors.New("registry file corrupted")
	ErrDuplicateBranch = errors.New("branch already tracked by another agent")
	ErrDuplicatePath   = errors.New("worktree path already tracked by another agent")
)

// Status is an agent's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusMerged    Status = "merged"
)

// Terminal reports whether the agent's own execution has finished.
// Merged is terminal for the registry as well.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusMerged
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed, StatusMerged:
		return true
	}
	return false
}

// ValidTransition reports whether the lifecycle graph permits from -> to.
// The graph is forward-only: Running -> {Completed, Failed} -> Merged.
// Removal is not a status; removed agents leave the registry entirely.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusFailed:
		return to == StatusMerged
	default:
		return false
	}
}

// Agent is one unit of autonomous work bound to a branch, an isolated
// worktree checkout, and a tmux window.
type Agent struct {
	ID           int        `json:"id"`
	Task         string     `json:"task"`
	Branch       string     `json:"branch"`
	BaseBranch   string     `json:"base_branch"`
	WorktreePath string     `json:"worktree_path"`
	TmuxSession  string     `json:"tmux_session"`
	TmuxWindow   string     `json:"tmux_window"`
	Status       Status     `json:"status"`
	Provider     string     `json:"provider"`
	LaunchedAt   time.Time  `json:"launched_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Registry is the persisted document: an id counter plus the
// insertion-ordered agent records.
type Registry struct {
	NextID int      `json:"next_id"`
	Agents []*Agent `json:"agents"`
}

// NewRegistry returns an empty registry with the counter at 1.
func NewRegistry() *Registry {
	return &Registry{NextID: 1}
}

// AllocateID returns the current counter value and increments it.
// Ids are never reused, even after an agent is removed.
func (r *Registry) AllocateID() int {
	id := r.NextID
	r.NextID++
	return id
}

// Add appends an agent, enforcing branch and worktree-path uniqueness
// across all registered agents.
func (r *Registry) Add(a *Agent) error {
	for _, existing := range r.Agents {
		if existing.Branch == a.Branch {
			return fmt.Errorf("%w: %s (agent %d)", ErrDuplicateBranch, a.Branch, existing.ID)
		}
		if existing.WorktreePath == a.WorktreePath {
			return fmt.Errorf("%w: %s (agent %d)", ErrDuplicatePath, a.WorktreePath, existing.ID)
		}
	}
	r.Agents = append(r.Agents, a)
	return nil
}

// Get returns the agent with the given id.
func (r *Registry) Get(id int) (*Agent, error) {
	for _, a := range r.Agents {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrAgentNotFound, id)
}

// Remove deletes the agent with the given id, preserving order of the rest.
func (r *Registry) Remove(id int) error {
	for i, a := range r.Agents {
		if a.ID == id {
			r.Agents = append(r.Agents[:i], r.Agents[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrAgentNotFound, id)
}
