// Package main implements the grove CLI: launch coding agents in isolated
// git worktrees, track them, and integrate their work.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grove/internal/config"
	"github.com/fyrsmithlabs/grove/internal/gitrepo"
	"github.com/fyrsmithlabs/grove/internal/logging"
	"github.com/fyrsmithlabs/grove/internal/orchestrator"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "grove",
	Short: "Run coding agents in isolated git worktrees",
	Long: `grove launches autonomous coding agents, each on its own branch in an
isolated git worktree inside a tmux window, and tracks them in a per-repository
registry. Agents report completion through status files; grove merges their
branches back when they are done.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(prCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(serveCmd)
}

// newOrchestrator resolves the repository from the working directory and
// wires up the engine. Shared by every subcommand.
func newOrchestrator() (*orchestrator.Orchestrator, *config.Config, *zap.Logger, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, nil, err
	}
	root, err := gitrepo.ResolveRoot(cwd)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	orch, err := orchestrator.New(root, cfg, nil, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return orch, cfg, log, nil
}

func flushLog(log *zap.Logger) {
	_ = logging.Sync(log)
}
