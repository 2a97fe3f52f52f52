// Package main provides the clausewise CLI entry point: an interactive
// contract-review chat by default, plus a non-interactive review
// subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.3.0"

var (
	workspace string
	debugMode bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clausewise",
	Short: "clausewise - 合同审核智能体",
	Long: `clausewise is an interactive contract-review agent.

It segments a contract into clauses and appendices, drives an LLM through a
bounded reason-and-act loop with issue-management and knowledge-base tools,
records findings in a review ledger, and exports a Markdown report.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive chat has its own UI; zap would fight the TUI.
		if cmd.Name() == "clausewise" {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		if debugMode {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Review a contract non-interactively",
	Long: `Loads a contract, reviews every section in sequence and writes the
Markdown report to the reports directory. Output streams to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clausewise %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
