package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/grove/internal/gitrepo"
	"github.com/fyrsmithlabs/grove/internal/state"
)

// PROptions customizes pull-request creation.
type PROptions struct {
	// Title defaults to the first line of the agent's task.
	Title string
	// Body defaults to the full task text.
	Body string
	// Force bypasses the terminal-status precondition.
	Force bool
}

// CreatePR pushes the agent's branch to origin and opens a pull request
// against its base branch. Precondition: resolved status is Completed or
// Failed unless forced. Returns the pull request URL.
func (o *Orchestrator) CreatePR(ctx context.Context, id int, opts PROptions) (string, error) {
	if o.cfg.GitHubToken == "" {
		return "", fmt.Errorf("no GitHub token configured (set GROVE_GITHUB_TOKEN or GITHUB_TOKEN)")
	}

	var url string
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

		if a.Status == state.StatusRunning && !opts.Force {
			return fmt.Errorf("%w: agent %d is still running (use force to override)", ErrPreconditionNotMet, id)
		}

		remoteURL, err := gitrepo.OriginURL(o.root)
		if err != nil {
			return err
		}
		owner, repo, err := gitrepo.ParseGitHubRemote(remoteURL)
		if err != nil {
			return err
		}

		if err := gitrepo.Push(o.root, a.Branch); err != nil {
			return err
		}

		title := opts.Title
		if title == "" {
			title = firstLine(a.Task)
		}
		body := opts.Body
		if body == "" {
			body = a.Task
		}

		client := newGitHubClient(ctx, o.cfg.GitHubToken)
		pr, _, err := client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
			Title: github.String(title),
			Head:  github.String(a.Branch),
			Base:  github.String(a.BaseBranch),
			Body:  github.String(body),
		})
		if err != nil {
			return fmt.Errorf("creating pull request for agent %d: %w", id, err)
		}
		url = pr.GetHTMLURL()
		return nil
	})
	return url, err
}

// newGitHubClient is a variable so tests can point at a stub server.
var newGitHubClient = func(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}
