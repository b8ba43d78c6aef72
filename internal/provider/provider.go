// Package provider builds the shell commands that start coding agents.
//
// A provider is an external CLI (claude, codex, ...) that reads a task prompt
// on stdin and works inside the agent's worktree. Providers differ only in
// binary name and the flags that put them into non-interactive, auto-approve
// operation.
package provider

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Provider identifies a supported agent CLI.
type Provider string

const (
	Claude   Provider = "claude"
	Codex    Provider = "codex"
	Gemini   Provider = "gemini"
	Amp      Provider = "amp"
	Opencode Provider = "opencode"
)

// Default is the provider used when none is configured or requested.
const Default = Claude

// All lists the supported providers, default first.
var All = []Provider{Claude, Codex, Gemini, Amp, Opencode}

// Parse validates a provider name, defaulting empty to Default.
func Parse(s string) (Provider, error) {
	if s == "" {
		return Default, nil
	}
	p := Provider(strings.ToLower(s))
	if slices.Contains(All, p) {
		return p, nil
	}
	names := make([]string, len(All))
	for i, known := range All {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown provider %q (want one of %s)", s, strings.Join(names, ", "))
}

// dangerFlag bypasses a provider's permission system entirely. It is never
// added by us; callers opt in by passing it through extra args.
const dangerFlag = "--dangerously-allow-all"

// claudeAllowedTools is the default allow-list for claude: read-only
// inspection plus the commands needed to build, test, and commit.
var claudeAllowedTools = []string{
	"Bash(go build:*)",
	"Bash(go test:*)",
	"Bash(go vet:*)",
	"Bash(gofmt:*)",
	"Bash(make:*)",
	"Bash(git diff:*)",
	"Bash(git status:*)",
	"Bash(git log:*)",
	"Bash(git branch:*)",
	"Bash(git add:*)",
	"Bash(git commit:*)",
	"Bash(ls:*)",
	"Bash(pwd)",
}

// Command builds the shell line sent to the agent's tmux window: change into
// the worktree, pipe the prompt file into the provider binary with its
// auto-approve flags, and append any extra args verbatim.
func (p Provider) Command(worktree, promptFile, statusFile string, extraArgs []string) string {
	extra := ""
	if len(extraArgs) > 0 {
		extra = " " + strings.Join(extraArgs, " ")
	}
	pipe := fmt.Sprintf("cd %s && cat %s | ", worktree, promptFile)

	switch p {
	case Claude:
		if slices.Contains(extraArgs, dangerFlag) {
			// The danger flag supersedes the allow-list; claude rejects
			// combining them.
			return pipe + "claude" + extra
		}
		allowed := strings.Join(claudeAllowedTools, ",")
		// The agent must be able to write its terminal status artifact.
		allowed += fmt.Sprintf(",Write(%s/*)", filepath.Dir(statusFile))
		return pipe + fmt.Sprintf("claude --permission-mode acceptEdits --allowedTools '%s'%s", allowed, extra)
	case Codex:
		// codex reads the prompt from stdin with `exec -`.
		return pipe + fmt.Sprintf("codex exec --full-auto%s -", extra)
	case Gemini:
		return pipe + fmt.Sprintf("gemini -y%s", extra)
	case Amp:
		if slices.Contains(extraArgs, dangerFlag) {
			return pipe + "amp" + extra
		}
		// amp has no granular permission mode; it only runs unattended with
		// the danger flag.
		return pipe + fmt.Sprintf("amp %s%s", dangerFlag, extra)
	case Opencode:
		return pipe + fmt.Sprintf("opencode%s", extra)
	}
	return pipe + string(p) + extra
}

// GuardedCommand wraps Command so that a provider exiting without having
// written its status artifact still leaves a terminal record behind: the
// shell writes a synthetic failed artifact after the pipeline finishes.
func (p Provider) GuardedCommand(worktree, promptFile, statusFile string, extraArgs []string) string {
	guard := fmt.Sprintf(`[ -f %s ] || printf '{"status":"failed","summary":"provider exited without reporting status"}' > %s`,
		statusFile, statusFile)
	return p.Command(worktree, promptFile, statusFile, extraArgs) + "; " + guard
}
