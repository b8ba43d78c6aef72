package gitrepo

import (
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// Push publishes branch to origin, creating the upstream tracking ref.
func Push(root, branch string) error {
	if _, err := runGit(root, "push", "-u", "origin", branch); err != nil {
		return fmt.Errorf("pushing %s: %w", branch, err)
	}
	return nil
}

// OriginURL returns the first URL of the origin remote.
func OriginURL(root string) (string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotARepository, root)
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("no origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}
	return urls[0], nil
}

// ParseGitHubRemote extracts owner and repository name from an origin URL in
// either https or ssh form.
func ParseGitHubRemote(url string) (owner, repo string, err error) {
	trimmed := strings.TrimSuffix(url, ".git")
	switch {
	case strings.HasPrefix(trimmed, "git@"):
		// git@github.com:owner/repo
		_, path, ok := strings.Cut(trimmed, ":")
		if !ok {
			return "", "", fmt.Errorf("unrecognized remote URL %q", url)
		}
		trimmed = path
	case strings.Contains(trimmed, "://"):
		// https://github.com/owner/repo
		_, path, _ := strings.Cut(trimmed, "://")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("unrecognized remote URL %q", url)
		}
		trimmed = parts[1]
	}

	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("unrecognized remote URL %q", url)
	}
	return parts[0], parts[1], nil
}
