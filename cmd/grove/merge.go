package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/grove/internal/gitrepo"
	"github.com/fyrsmithlabs/grove/internal/orchestrator"
)

var (
	mergeStrategy string
	mergeTarget   string
	mergeForce    bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <id>",
	Short: "Merge an agent's branch into its target",
	Long: `Merge integrates the agent's branch and tears down its worktree.

Examples:
  # Merge into the agent's base branch
  grove merge 3

  # Rebase for linear history, or squash into one commit
  grove merge 3 --strategy rebase
  grove merge 3 --strategy squash

  # Merge into a different branch
  grove merge 3 --target develop`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeStrategy, "strategy", "s", "merge", "integration strategy: merge, rebase, or squash")
	mergeCmd.Flags().StringVarP(&mergeTarget, "target", "t", "", "target branch (default the agent's base branch)")
	mergeCmd.Flags().BoolVarP(&mergeForce, "force", "f", false, "merge even if the agent is still running")
}

func runMerge(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	strategy, err := gitrepo.ParseStrategy(mergeStrategy)
	if err != nil {
		return err
	}

	orch, _, log, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer flushLog(log)

	outcome, err := orch.Merge(id, orchestrator.MergeOptions{
		Strategy: strategy,
		Target:   mergeTarget,
		Force:    mergeForce,
	})
	if err != nil {
		if outcome != nil && len(outcome.Conflicts) > 0 {
			fmt.Println("Merge conflict in:")
			for _, f := range outcome.Conflicts {
				fmt.Printf("  %s\n", f)
			}
			fmt.Println("\nResolve manually, then retry, or remove the agent to discard its work.")
		}
		return err
	}
	fmt.Println(outcome.Message)
	return nil
}

var (
	prTitle string
	prBody  string
	prForce bool
)

var prCmd = &cobra.Command{
	Use:   "pr <id>",
	Short: "Push an agent's branch and open a pull request",
	Long: `Pr pushes the agent's branch to origin and opens a GitHub pull request
against its base branch. Requires GROVE_GITHUB_TOKEN or GITHUB_TOKEN.

Examples:
  grove pr 3
  grove pr 3 --title "Fix file watcher race"`,
	Args: cobra.ExactArgs(1),
	RunE: runPR,
}

func init() {
	prCmd.Flags().StringVar(&prTitle, "title", "", "pull request title (default the first task line)")
	prCmd.Flags().StringVar(&prBody, "body", "", "pull request body (default the task text)")
	prCmd.Flags().BoolVarP(&prForce, "force", "f", false, "open the PR even if the agent is still running")
}

func runPR(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	orch, _, log, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer flushLog(log)

	url, err := orch.CreatePR(cmd.Context(), id, orchestrator.PROptions{
		Title: prTitle,
		Body:  prBody,
		Force: prForce,
	})
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}
