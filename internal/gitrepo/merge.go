package gitrepo

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy selects how an agent branch is integrated into its target.
type Strategy string

const (
	StrategyMerge  Strategy = "merge"
	StrategyRebase Strategy = "rebase"
	StrategySquash Strategy = "squash"
)

// ParseStrategy validates a strategy name, defaulting empty to merge.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyMerge:
		return StrategyMerge, nil
	case StrategyRebase:
		return StrategyRebase, nil
	case StrategySquash:
		return StrategySquash, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (want merge, rebase, or squash)", s)
}

// MergeRequest describes one integration attempt.
type MergeRequest struct {
	// Root is the main repository root; target is checked out there.
	Root string
	// Branch is the agent's branch to integrate.
	Branch string
	// Target is the branch to integrate into.
	Target string
	// Strategy is merge, rebase, or squash.
	Strategy Strategy
	// SquashMessage is the commit message for the squash strategy.
	SquashMessage string
	// WorktreePath is where Branch is checked out, if anywhere. The rebase
	// strategy replays commits there, since a branch held by a linked
	// worktree cannot also be checked out at the root.
	WorktreePath string
}

// MergeOutcome describes the result of an integration attempt. It is
// ephemeral: the facade uses it to drive the agent's registry transition but
// never persists it.
type MergeOutcome struct {
	Success   bool
	Message   string
	MergedRef string
	Conflicts []string
}

// Merge integrates req.Branch into req.Target from the repository root,
// independent of the caller's working directory. On a conflict the
// in-progress operation is aborted, target and the agent branch are left
// untouched, and the returned error wraps ErrMergeConflict with the
// conflicting paths; there is no automatic conflict resolution.
func Merge(req MergeRequest) (*MergeOutcome, error) {
	if _, err := runGit(req.Root, "checkout", req.Target); err != nil {
		return nil, fmt.Errorf("checking out %s: %w", req.Target, err)
	}

	var err error
	switch req.Strategy {
	case StrategyMerge:
		err = doMerge(req.Root, req.Branch)
	case StrategyRebase:
		err = doRebase(req)
	case StrategySquash:
		err = doSquash(req.Root, req.Branch, req.SquashMessage)
	default:
		return nil, fmt.Errorf("unknown merge strategy %q", req.Strategy)
	}
	if err != nil {
		return &MergeOutcome{Success: false, Message: err.Error(), Conflicts: conflictsFrom(err)}, err
	}

	ref, refErr := gitOutput(req.Root, "rev-parse", "HEAD")
	if refErr != nil {
		ref = ""
	}
	return &MergeOutcome{
		Success:   true,
		Message:   fmt.Sprintf("%s integrated into %s (%s)", req.Branch, req.Target, req.Strategy),
		MergedRef: ref,
	}, nil
}

// conflictError carries the conflicting paths alongside ErrMergeConflict.
type conflictError struct {
	files []string
}

func (e *conflictError) Error() string {
	if len(e.files) == 0 {
		return "merge conflict"
	}
	return fmt.Sprintf("merge conflict in: %s", strings.Join(e.files, ", "))
}

func (e *conflictError) Unwrap() error { return ErrMergeConflict }

func conflictsFrom(err error) []string {
	var ce *conflictError
	if errors.As(err, &ce) {
		return ce.files
	}
	return nil
}

func doMerge(root, branch string) error {
	if _, err := runGit(root, "merge", "--no-edit", branch); err != nil {
		if hasConflicts(root) {
			files := conflictFiles(root)
			_, _ = runGit(root, "merge", "--abort")
			return &conflictError{files: files}
		}
		return err
	}
	return nil
}

// doRebase replays the branch's commits onto target, then fast-forwards
// target to the rebased tip.
func doRebase(req MergeRequest) error {
	// Rebase where the branch is checked out: its worktree if it has one,
	// otherwise the root checkout.
	dir := req.WorktreePath
	if dir == "" {
		dir = req.Root
		if _, err := runGit(dir, "checkout", req.Branch); err != nil {
			return err
		}
	}

	if _, err := runGit(dir, "rebase", req.Target); err != nil {
		files := conflictFiles(dir)
		_, _ = runGit(dir, "rebase", "--abort")
		if dir == req.Root {
			_, _ = runGit(req.Root, "checkout", req.Target)
		}
		if len(files) > 0 {
			return &conflictError{files: files}
		}
		return err
	}

	if _, err := runGit(req.Root, "checkout", req.Target); err != nil {
		return err
	}
	if _, err := runGit(req.Root, "merge", "--ff-only", req.Branch); err != nil {
		return fmt.Errorf("fast-forwarding %s: %w", req.Target, err)
	}
	return nil
}

func doSquash(root, branch, message string) error {
	if _, err := runGit(root, "merge", "--squash", branch); err != nil {
		if hasConflicts(root) {
			files := conflictFiles(root)
			_, _ = runGit(root, "reset", "--hard", "HEAD")
			return &conflictError{files: files}
		}
		return err
	}
	if message == "" {
		message = fmt.Sprintf("Squash merge %s", branch)
	}
	if _, err := runGit(root, "commit", "-m", message); err != nil {
		return fmt.Errorf("committing squash of %s: %w", branch, err)
	}
	return nil
}

// conflictFiles lists paths with unresolved conflicts.
func conflictFiles(dir string) []string {
	out, err := gitOutput(dir, "diff", "--name-only", "--diff-filter=U")
	if err != nil || out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func hasConflicts(dir string) bool {
	return len(conflictFiles(dir)) > 0
}
