package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/grove/internal/orchestrator"
	"github.com/fyrsmithlabs/grove/internal/state"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove an agent and its worktree, branch, and window",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		orch, _, log, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer flushLog(log)

		if err := orch.Remove(id, removeForce); err != nil {
			return err
		}
		fmt.Printf("Removed agent %d\n", id)
		return nil
	},
}

var (
	pruneAll    bool
	pruneStatus string
	pruneForce  bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove finished agents in bulk",
	Long: `Prune removes every agent matching the filter. Without flags it removes
inactive agents (completed, failed, or merged).

Examples:
  grove prune
  grove prune --status failed
  grove prune --all --force`,
	RunE: runPrune,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "remove even if running or dirty")
	pruneCmd.Flags().BoolVar(&pruneAll, "all", false, "remove every agent regardless of status")
	pruneCmd.Flags().StringVar(&pruneStatus, "status", "", "remove only agents with this resolved status")
	pruneCmd.Flags().BoolVarP(&pruneForce, "force", "f", false, "force-remove each matching agent")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if pruneStatus != "" && !state.Status(pruneStatus).Valid() {
		return fmt.Errorf("unknown status %q (want running, completed, failed, or merged)", pruneStatus)
	}

	orch, _, log, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer flushLog(log)

	pruned, err := orch.Prune(orchestrator.PruneFilter{
		All:    pruneAll,
		Status: state.Status(pruneStatus),
	}, pruneForce)
	for _, id := range pruned {
		fmt.Printf("Removed agent %d\n", id)
	}
	if err != nil {
		return err
	}
	if len(pruned) == 0 {
		fmt.Println("Nothing to prune.")
	}
	return nil
}
