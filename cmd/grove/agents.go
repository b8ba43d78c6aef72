package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid agent id %q", arg)
	}
	return id, nil
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List agents with live-resolved status",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	orch, _, log, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer flushLog(log)

	infos, err := orch.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No agents. Start one with: grove launch <task>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tBRANCH\tPROVIDER\tAGE\tTASK")
	for _, info := range infos {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			info.ID, info.ResolvedStatus, info.Branch, info.Provider,
			age(info.LaunchedAt), truncate(info.Task, 60))
	}
	return w.Flush()
}

func age(t time.Time) string {
	d := time.Since(t).Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// truncate shortens s to max runes, not bytes, so multi-byte characters
// never get cut mid-sequence.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

var statusLines int

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show one agent's status and recent output",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLines, "lines", "n", 0, "pane lines to show (default from config)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	orch, _, log, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer flushLog(log)

	info, err := orch.Status(id)
	if err != nil {
		return err
	}

	fmt.Printf("Agent %d: %s\n", info.ID, info.ResolvedStatus)
	if info.StatusReason != "" {
		fmt.Printf("  reason:   %s\n", info.StatusReason)
	}
	fmt.Printf("  task:     %s\n", truncate(info.Task, 80))
	fmt.Printf("  branch:   %s (from %s)\n", info.Branch, info.BaseBranch)
	fmt.Printf("  launched: %s\n", info.LaunchedAt.Format(time.RFC3339))
	if info.CompletedAt != nil {
		fmt.Printf("  finished: %s\n", info.CompletedAt.Format(time.RFC3339))
	}

	out, err := orch.Output(id, statusLines)
	if err != nil {
		// The window is usually gone once the agent finished.
		return nil
	}
	fmt.Println("\nRecent output:")
	fmt.Print(out)
	return nil
}

var attachCmd = &cobra.Command{
	Use:   "attach <id>",
	Short: "Attach the terminal to an agent's tmux window",
	Args:  cobra.ExactArgs(1),
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
		return orch.Attach(id)
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <id>",
	Short: "Show an agent's changes against its base branch",
	Args:  cobra.ExactArgs(1),
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

		summary, err := orch.Diff(id)
		if err != nil {
			return err
		}
		if summary.Diff == "" {
			fmt.Println("No changes (or the worktree is already gone).")
			return nil
		}
		fmt.Printf("%d files changed, %d insertions(+), %d deletions(-)\n\n",
			summary.FilesChanged, summary.Additions, summary.Deletions)
		fmt.Print(summary.Diff)
		return nil
	},
}
