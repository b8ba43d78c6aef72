// Package gitrepo provides the repository-facing half of grove: locating the
// main repository from any working directory, resolving the default
// integration branch, managing per-agent worktree checkouts, and integrating
// agent branches back into a target branch.
//
// Read-side operations (discovery, branch lookups) go through go-git.
// History-mutating operations (worktree add/remove, merge, rebase, squash)
// shell out to the git binary; grove does not reimplement version-control
// internals.
package gitrepo

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Errors surfaced by this package.
var (
	ErrNotARepository  = errors.New("not a git repository")
	ErrNoDefaultBranch = errors.New("repository has no default branch")
	ErrBranchExists    = errors.New("branch already exists")
	ErrPathExists      = errors.New("worktree path already exists")
	ErrDirtyCheckout   = errors.New("worktree has uncommitted changes")
	ErrMergeConflict   = errors.New("merge conflict")
)

// runGit executes git with the given arguments in dir and returns stdout.
// Failures include the command and stderr so callers can surface them
// verbatim.
func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("git %s: %s: %w",
			strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// gitOutput is runGit with trailing whitespace trimmed.
func gitOutput(dir string, args ...string) (string, error) {
	out, err := runGit(dir, args...)
	return strings.TrimSpace(out), err
}
