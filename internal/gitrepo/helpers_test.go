package gitrepo

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// requireGit skips tests that need the git binary when it is not installed.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func mustGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runGit(dir, args...)
	if err != nil {
		t.Fatalf("git %v failed: %v", args, err)
	}
	return out
}

// initRepo creates a repository with one commit on branch "main".
func initRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	root := t.TempDir()
	mustGit(t, root, "init", "-b", "main")
	mustGit(t, root, "config", "user.email", "test@example.com")
	mustGit(t, root, "config", "user.name", "test")
	commitFile(t, root, "README.md", "hello\n", "initial commit")
	return root
}

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	mustGit(t, dir, "add", name)
	mustGit(t, dir, "commit", "-m", msg)
}

func branchTip(t *testing.T, dir, branch string) string {
	t.Helper()
	out, err := gitOutput(dir, "rev-parse", branch)
	if err != nil {
		t.Fatalf("rev-parse %s: %v", branch, err)
	}
	return out
}
