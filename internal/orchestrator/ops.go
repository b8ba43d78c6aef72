package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grove/internal/gitrepo"
	"github.com/fyrsmithlabs/grove/internal/state"
)

// Output returns the last lines of the agent's pane.
func (o *Orchestrator) Output(id, lines int) (string, error) {
	a, err := o.Get(id)
	if err != nil {
		return "", err
	}
	if lines < 1 {
		lines = o.cfg.Agent.CaptureLines
	}
	return o.session.Capture(a.TmuxWindow, lines)
}

// Attach connects the caller's terminal to the agent's window.
func (o *Orchestrator) Attach(id int) error {
	a, err := o.Get(id)
	if err != nil {
		return err
	}
	return o.session.Attach(a.TmuxWindow)
}

// Diff summarizes the agent's changes against its base branch. An already
// torn-down checkout yields an empty summary rather than an error.
func (o *Orchestrator) Diff(id int) (*gitrepo.DiffSummary, error) {
	a, err := o.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(a.WorktreePath); err != nil {
		return &gitrepo.DiffSummary{}, nil
	}
	return gitrepo.Summarize(a.WorktreePath, a.BaseBranch)
}

// MergeOptions selects how and where an agent's branch is integrated.
type MergeOptions struct {
	Strategy gitrepo.Strategy
	// Target overrides the agent's base branch as integration target.
	Target string
	// Force bypasses the terminal-status precondition.
	Force bool
}

// Merge integrates the agent's branch. Precondition: resolved status is
// Completed or Failed unless forced. On success the checkout and branch are
// torn down, the prompt and status artifacts deleted, and the agent
// transitions to Merged — all committed in one registry write. A conflict
// aborts with everything untouched.
func (o *Orchestrator) Merge(id int, opts MergeOptions) (*gitrepo.MergeOutcome, error) {
	var outcome *gitrepo.MergeOutcome
	err := o.store.WithLock(func(reg *state.Registry) error {
		a, err := reg.Get(id)
		if err != nil {
			return err
		}
		resolved, _, err := o.resolveStatus(a)
		if err != nil {
			return err
		}
		o.applyResolved(a, resolved)

		if a.Status == state.StatusMerged {
			return fmt.Errorf("%w: agent %d is already merged", ErrPreconditionNotMet, id)
		}
		if a.Status == state.StatusRunning && !opts.Force {
			return fmt.Errorf("%w: agent %d is still running (use force to override)", ErrPreconditionNotMet, id)
		}

		target := opts.Target
		if target == "" {
			target = a.BaseBranch
		}
		outcome, err = gitrepo.Merge(gitrepo.MergeRequest{
			Root:          o.root,
			Branch:        a.Branch,
			Target:        target,
			Strategy:      opts.Strategy,
			SquashMessage: a.Task,
			WorktreePath:  a.WorktreePath,
		})
		if err != nil {
			return err
		}

		if err := o.checkout.Remove(a.WorktreePath, a.Branch, true); err != nil {
			o.log.Warn("merged checkout not fully removed",
				zap.Int("id", id), zap.Error(err))
		}
		if err := o.session.Kill(a.TmuxWindow); err != nil {
			o.log.Warn("could not close merged agent's window",
				zap.Int("id", id), zap.Error(err))
		}
		o.cleanupArtifacts(id)
		a.Status = state.StatusMerged
		if a.CompletedAt == nil {
			t := now()
			a.CompletedAt = &t
		}
		return nil
	})
	if err != nil {
		return outcome, err
	}
	o.log.Info("agent merged", zap.Int("id", id), zap.String("ref", outcome.MergedRef))
	return outcome, nil
}

// Remove deletes the agent and its resources. Precondition: resolved status
// is Completed, Failed, or Merged unless forced. Without force the
// operation aborts on the first failure leaving state untouched; with force
// every step is independently best-effort.
func (o *Orchestrator) Remove(id int, force bool) error {
	return o.store.WithLock(func(reg *state.Registry) error {
		a, err := reg.Get(id)
		if err != nil {
			return err
		}
		resolved, _, err := o.resolveStatus(a)
		if err != nil && !force {
			return err
		}
		if err == nil {
			o.applyResolved(a, resolved)
		}

		if a.Status == state.StatusRunning && !force {
			return fmt.Errorf("%w: agent %d is still running (use force to override)", ErrPreconditionNotMet, id)
		}

		if err := o.checkout.Remove(a.WorktreePath, a.Branch, force); err != nil {
			if !force {
				return fmt.Errorf("removing agent %d checkout: %w", id, err)
			}
			o.log.Warn("checkout not fully removed", zap.Int("id", id), zap.Error(err))
		}
		if err := o.session.Kill(a.TmuxWindow); err != nil {
			o.log.Warn("could not close agent's window", zap.Int("id", id), zap.Error(err))
		}
		o.cleanupArtifacts(id)
		return reg.Remove(id)
	})
}

// PruneFilter selects which agents a prune pass removes. The zero value
// matches inactive agents (Completed, Failed, Merged).
type PruneFilter struct {
	All    bool
	Status state.Status
}

func (f PruneFilter) matches(resolved state.Status) bool {
	switch {
	case f.All:
		return true
	case f.Status != "":
		return resolved == f.Status
	default:
		return resolved.Terminal()
	}
}

// Prune removes every agent matching the filter. One agent's failure does
// not stop the rest; all failures are collected and returned together with
// the ids that were removed.
func (o *Orchestrator) Prune(filter PruneFilter, force bool) ([]int, error) {
	infos, err := o.List()
	if err != nil {
		return nil, err
	}

	var pruned []int
	var errs []error
	for _, info := range infos {
		if info.ResolvedStatus == StatusUnavailable {
			// Cannot evaluate the filter without a resolved status; report
			// rather than silently skip.
			errs = append(errs, fmt.Errorf("agent %d: status unavailable, not pruned", info.ID))
			continue
		}
		if !filter.matches(state.Status(info.ResolvedStatus)) {
			continue
		}
		if err := o.Remove(info.ID, force); err != nil {
			errs = append(errs, fmt.Errorf("agent %d: %w", info.ID, err))
			continue
		}
		pruned = append(pruned, info.ID)
	}
	return pruned, errors.Join(errs...)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
