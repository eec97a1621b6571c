package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vishva",
	Short: "LLM task orchestration engine",
	Long: `Vishva turns a natural-language query into a plan of agent-assigned
subtasks, resolves the dependencies between them, and executes the graph
wave by wave with live status reporting.

Core capabilities:
- Plans queries into subtask graphs with specialist agents
- Resolves inter-subtask dependencies into an execution order
- Runs independent subtasks concurrently, waves at a time
- Prefers partial results over stalling the graph on a flaky step
- Streams execution status over a WebSocket API`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
