// Package orchestrator is the engine facade: every CLI command and HTTP
// handler goes through Orchestrator and nothing else touches the registry,
// the checkouts, or the multiplexer directly.
package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grove/internal/config"
	"github.com/fyrsmithlabs/grove/internal/gitrepo"
	"github.com/fyrsmithlabs/grove/internal/provider"
	"github.com/fyrsmithlabs/grove/internal/state"
	"github.com/fyrsmithlabs/grove/internal/tmux"
)

// ErrPreconditionNotMet is returned when an operation requires a lifecycle
// state the agent is not in and force was not given.
var ErrPreconditionNotMet = errors.New("operation precondition not met")

const stateDirName = ".grove"

// Session is the multiplexer surface the engine needs. *tmux.Manager
// implements it.
type Session interface {
	Session() string
	Start(window, workdir, command string) error
	Capture(window string, lines int) (string, error)
	WindowExists(window string) bool
	Kill(window string) error
	Attach(window string) error
}

// Orchestrator coordinates the registry, checkouts, and agent sessions for
// one repository.
type Orchestrator struct {
	root     string
	cfg      *config.Config
	store    *state.Store
	checkout *gitrepo.CheckoutController
	session  Session
	log      *zap.Logger
}

// New builds an orchestrator for the repository rooted at root. A nil
// session gets the real tmux manager.
func New(root string, cfg *config.Config, session Session, log *zap.Logger) (*Orchestrator, error) {
	store, err := state.NewStore(filepath.Join(root, stateDirName))
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = tmux.NewManager(tmux.SessionName(cfg.Tmux.SessionPrefix, root))
	}
	return &Orchestrator{
		root:     root,
		cfg:      cfg,
		store:    store,
		checkout: gitrepo.NewCheckoutController(root),
		session:  session,
		log:      log,
	}, nil
}

// Root returns the repository root the orchestrator operates on.
func (o *Orchestrator) Root() string {
	return o.root
}

func (o *Orchestrator) worktreePath(id int) string {
	return filepath.Join(o.root, stateDirName, "worktrees", strconv.Itoa(id))
}

func (o *Orchestrator) promptPath(id int) string {
	return filepath.Join(o.root, stateDirName, "prompts", strconv.Itoa(id)+".txt")
}

func (o *Orchestrator) statusPath(id int) string {
	return filepath.Join(o.root, stateDirName, "status", strconv.Itoa(id)+".json")
}

// LaunchRequest describes one agent to start.
type LaunchRequest struct {
	Task         string
	Branch       string
	Base         string
	Provider     string
	ProviderArgs []string
}

// Launch allocates an id, creates the branch and worktree, writes the task
// prompt, starts the provider in a fresh window, and registers the agent.
// The registry write commits last: if any side effect fails the entry is
// never persisted and the partially-created resources are torn down.
func (o *Orchestrator) Launch(req LaunchRequest) (*state.Agent, error) {
	if req.Task == "" {
		return nil, fmt.Errorf("task cannot be empty")
	}
	prov, err := provider.Parse(req.Provider)
	if err != nil {
		return nil, err
	}

	var agent *state.Agent
	err = o.store.WithLock(func(reg *state.Registry) error {
		id := reg.AllocateID()
		path := o.worktreePath(id)

		branch, base, err := o.prepareCheckout(req, id, path)
		if err != nil {
			return err
		}

		a := &state.Agent{
			ID:           id,
			Task:         req.Task,
			Branch:       branch,
			BaseBranch:   base,
			WorktreePath: path,
			TmuxSession:  o.session.Session(),
			TmuxWindow:   strconv.Itoa(id),
			Status:       state.StatusRunning,
			Provider:     string(prov),
			LaunchedAt:   now(),
		}
		if err := reg.Add(a); err != nil {
			o.rollbackLaunch(path, branch)
			return err
		}

		o.copyClaudeSettings(path)

		if err := o.writePrompt(id, req.Task); err != nil {
			o.rollbackLaunch(path, branch)
			return err
		}
		extraArgs := append(append([]string{}, o.cfg.Agent.ExtraArgs...), req.ProviderArgs...)
		cmd := prov.GuardedCommand(path, o.promptPath(id), o.statusPath(id), extraArgs)
		if err := o.session.Start(a.TmuxWindow, path, cmd); err != nil {
			o.rollbackLaunch(path, branch)
			return fmt.Errorf("starting agent %d: %w", id, err)
		}

		agent = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.log.Info("agent launched",
		zap.Int("id", agent.ID),
		zap.String("branch", agent.Branch),
		zap.String("provider", agent.Provider))
	return agent, nil
}

// prepareCheckout picks branch and base per the launch request and creates
// the worktree. Launching onto an existing local branch checks it out
// directly and records the branch itself as base.
func (o *Orchestrator) prepareCheckout(req LaunchRequest, id int, path string) (branch, base string, err error) {
	if req.Branch != "" {
		exists, err := gitrepo.BranchExists(o.root, req.Branch)
		if err != nil {
			return "", "", err
		}
		if exists {
			if err := o.checkout.CheckoutExisting(req.Branch, path); err != nil {
				return "", "", err
			}
			return req.Branch, req.Branch, nil
		}
	}

	branch = req.Branch
	if branch == "" {
		branch = fmt.Sprintf("%s/%d", o.cfg.Agent.BranchPrefix, id)
	}
	base = req.Base
	if base == "" {
		base, err = gitrepo.CurrentBranch(o.root)
		if err != nil {
			base, err = gitrepo.DefaultBranch(o.root)
			if err != nil {
				return "", "", err
			}
		}
	}
	if err := o.checkout.Create(branch, base, path); err != nil {
		return "", "", err
	}
	return branch, base, nil
}

// rollbackLaunch tears down a partially-launched agent's resources.
func (o *Orchestrator) rollbackLaunch(path, branch string) {
	if err := o.checkout.Remove(path, branch, true); err != nil {
		o.log.Warn("launch rollback left resources behind",
			zap.String("path", path), zap.Error(err))
	}
}

// promptContract is appended to every task so the agent knows how to report
// completion.
const promptContract = `

---
IMPORTANT: When you complete this task:
1. Commit your changes
2. Write a JSON status file to: %s
   Format: {"status": "completed"|"failed", "summary": "brief description", "files_changed": ["file1", "file2"], "error": null}`

func (o *Orchestrator) writePrompt(id int, task string) error {
	dir := filepath.Dir(o.promptPath(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating prompts directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(o.statusPath(id)), 0o755); err != nil {
		return fmt.Errorf("creating status directory: %w", err)
	}
	content := task + fmt.Sprintf(promptContract, o.statusPath(id))
	if err := os.WriteFile(o.promptPath(id), []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing prompt: %w", err)
	}
	return nil
}

// copyClaudeSettings copies the repository's .claude directory into a new
// worktree so permission settings carry over. Best-effort.
func (o *Orchestrator) copyClaudeSettings(worktree string) {
	src := filepath.Join(o.root, ".claude")
	if _, err := os.Stat(src); err != nil {
		return
	}
	if err := copyDir(src, filepath.Join(worktree, ".claude")); err != nil {
		o.log.Warn("could not copy .claude settings to worktree", zap.Error(err))
	}
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
