package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGitHub serves the pull-request creation endpoint and records the
// request body.
func stubGitHub(t *testing.T, created *github.NewPullRequest) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(created))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 7, "html_url": "https://github.com/acme/widgets/pull/7"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreatePR(t *testing.T) {
	o, _, root := newTestOrchestrator(t)

	// Fetch URL names the GitHub project; pushes go to a local bare repo.
	bare := t.TempDir()
	mustGit(t, bare, "init", "--bare")
	mustGit(t, root, "remote", "add", "origin", "https://github.com/acme/widgets.git")
	mustGit(t, root, "remote", "set-url", "--push", "origin", bare)

	a, err := o.Launch(LaunchRequest{Task: "Add pagination\n\nDetails in the issue."})
	require.NoError(t, err)
	commitInWorktree(t, a.WorktreePath, "page.go", "package page\n")
	writeArtifact(t, o, a.ID, `{"status":"completed","summary":"done"}`)

	var created github.NewPullRequest
	srv := stubGitHub(t, &created)
	base, _ := url.Parse(srv.URL + "/")
	orig := newGitHubClient
	newGitHubClient = func(ctx context.Context, token string) *github.Client {
		c := github.NewClient(nil)
		c.BaseURL = base
		return c
	}
	t.Cleanup(func() { newGitHubClient = orig })
	o.cfg.GitHubToken = "test-token"

	prURL, err := o.CreatePR(context.Background(), a.ID, PROptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets/pull/7", prURL)

	// Title defaults to the first task line, body to the full task.
	assert.Equal(t, "Add pagination", created.GetTitle())
	assert.Contains(t, created.GetBody(), "Details in the issue.")
	assert.Equal(t, a.Branch, created.GetHead())
	assert.Equal(t, "main", created.GetBase())

	// The branch was pushed to origin.
	out := mustGit(t, bare, "branch", "--list", a.Branch)
	assert.Contains(t, out, a.Branch)
}

func TestCreatePR_Preconditions(t *testing.T) {
	o, _, root := newTestOrchestrator(t)
	mustGit(t, root, "remote", "add", "origin", "https://github.com/acme/widgets.git")
	a, err := o.Launch(LaunchRequest{Task: "task"})
	require.NoError(t, err)

	t.Run("no token", func(t *testing.T) {
		o.cfg.GitHubToken = ""
		_, err := o.CreatePR(context.Background(), a.ID, PROptions{})
		assert.Error(t, err)
	})

	t.Run("still running", func(t *testing.T) {
		o.cfg.GitHubToken = "test-token"
		_, err := o.CreatePR(context.Background(), a.ID, PROptions{})
		assert.ErrorIs(t, err, ErrPreconditionNotMet)
	})
}
