package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/grove/internal/orchestrator"
)

var (
	launchBranch   string
	launchBase     string
	launchProvider string
)

var launchCmd = &cobra.Command{
	Use:   "launch <task> [-- provider args...]",
	Short: "Launch a new agent on the given task",
	Long: `Launch starts a coding agent in a fresh worktree on its own branch and
hands it the task.

Examples:
  # Launch with an auto-named branch from the current branch
  grove launch "Fix the race in the file watcher"

  # Pick the branch and base explicitly
  grove launch --branch fix-watcher --base main "Fix the race"

  # Continue work on an existing branch
  grove launch --branch feature-auth "Finish the login flow"

  # Pass extra flags through to the provider
  grove launch "Refactor the parser" -- --model opus`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().StringVarP(&launchBranch, "branch", "b", "", "branch name (default <prefix>/<id>; an existing branch is checked out)")
	launchCmd.Flags().StringVar(&launchBase, "base", "", "base branch to fork from (default the current branch)")
	launchCmd.Flags().StringVarP(&launchProvider, "provider", "p", "", "agent provider: claude, codex, gemini, amp, opencode")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")
	var providerArgs []string
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		task = strings.Join(args[:dash], " ")
		providerArgs = args[dash:]
	}

	orch, _, log, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer flushLog(log)

	a, err := orch.Launch(orchestrator.LaunchRequest{
		Task:         task,
		Branch:       launchBranch,
		Base:         launchBase,
		Provider:     launchProvider,
		ProviderArgs: providerArgs,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Launched agent %d\n", a.ID)
	fmt.Printf("  branch:   %s (from %s)\n", a.Branch, a.BaseBranch)
	fmt.Printf("  worktree: %s\n", a.WorktreePath)
	fmt.Printf("  provider: %s\n", a.Provider)
	fmt.Printf("\nFollow along with: grove attach %d\n", a.ID)
	return nil
}
