package gitrepo

import (
	"strconv"
	"strings"
)

// DiffSummary is the structured diff between an agent's branch and its base,
// computed inside the agent's worktree.
type DiffSummary struct {
	Diff         string   `json:"diff"`
	Files        []string `json:"files_changed"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	FilesChanged int      `json:"files_count"`
}

// Summarize returns the diff between base and the worktree's HEAD. The
// three-dot range diffs against the merge base, so upstream movement on the
// base branch does not show up as the agent's changes.
func Summarize(worktreePath, base string) (*DiffSummary, error) {
	diffRange := base + "...HEAD"

	diff, err := runGit(worktreePath, "diff", diffRange)
	if err != nil {
		return nil, err
	}

	names, err := gitOutput(worktreePath, "diff", "--name-only", diffRange)
	if err != nil {
		return nil, err
	}
	var files []string
	if names != "" {
		files = strings.Split(names, "\n")
	}

	shortstat, err := gitOutput(worktreePath, "diff", "--shortstat", diffRange)
	if err != nil {
		return nil, err
	}

	s := &DiffSummary{Diff: diff, Files: files}
	s.FilesChanged, s.Additions, s.Deletions = parseShortstat(shortstat)
	return s, nil
}

// parseShortstat parses "3 files changed, 10 insertions(+), 5 deletions(-)".
// Any part may be absent.
func parseShortstat(stat string) (files, additions, deletions int) {
	for _, part := range strings.Split(stat, ",") {
		part = strings.TrimSpace(part)
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		switch {
		case strings.Contains(part, "file"):
			files = n
		case strings.Contains(part, "insertion"):
			additions = n
		case strings.Contains(part, "deletion"):
			deletions = n
		}
	}
	return files, additions, deletions
}
