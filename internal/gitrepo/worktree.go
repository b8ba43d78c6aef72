package gitrepo

import (
	"fmt"
	"os"
)

// CheckoutController creates and removes per-agent worktree checkouts and
// their branches. All operations run against the main repository root, never
// the caller's working directory.
type CheckoutController struct {
	root string
}

// NewCheckoutController returns a controller for the repository at root.
func NewCheckoutController(root string) *CheckoutController {
	return &CheckoutController{root: root}
}

// Create makes a new branch from base and checks it out as a worktree at
// path. Collisions fail with ErrBranchExists or ErrPathExists before any
// side effect happens.
func (c *CheckoutController) Create(branch, base, path string) error {
	exists, err := BranchExists(c.root, branch)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBranchExists, branch)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrPathExists, path)
	}

	if _, err := runGit(c.root, "worktree", "add", "-b", branch, path, base); err != nil {
		return fmt.Errorf("creating worktree: %w", err)
	}
	return nil
}

// CheckoutExisting checks an already-existing branch out as a worktree at
// path without creating a new branch.
func (c *CheckoutController) CheckoutExisting(branch, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrPathExists, path)
	}
	if _, err := runGit(c.root, "worktree", "add", path, branch); err != nil {
		return fmt.Errorf("checking out %s: %w", branch, err)
	}
	return nil
}

// Remove tears down the worktree at path and then deletes branch. A dirty
// checkout fails with ErrDirtyCheckout unless force is set; the caller
// decides whether to force. Removing an already-absent checkout or branch
// succeeds silently.
func (c *CheckoutController) Remove(path, branch string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			dirty, err := c.isDirty(path)
			if err != nil {
				return err
			}
			if dirty {
				return fmt.Errorf("%w: %s", ErrDirtyCheckout, path)
			}
		}
		if _, err := runGit(c.root, "worktree", "remove", "--force", path); err != nil {
			return fmt.Errorf("removing worktree: %w", err)
		}
	} else {
		// Path already gone; clear any stale worktree bookkeeping.
		_, _ = runGit(c.root, "worktree", "prune")
	}

	if branch != "" {
		exists, err := BranchExists(c.root, branch)
		if err != nil {
			return err
		}
		if exists {
			if _, err := runGit(c.root, "branch", "-D", branch); err != nil {
				return fmt.Errorf("deleting branch %s: %w", branch, err)
			}
		}
	}
	return nil
}

// isDirty reports whether the checkout at path has uncommitted changes,
// including untracked files.
func (c *CheckoutController) isDirty(path string) (bool, error) {
	out, err := gitOutput(path, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("checking worktree status: %w", err)
	}
	return out != "", nil
}
