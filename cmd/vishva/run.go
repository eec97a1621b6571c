package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vishva-ai/vishva/internal/config"
	"github.com/vishva-ai/vishva/internal/executor"
	"github.com/vishva-ai/vishva/pkg/models"
)

var runShowPlan bool

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Plan and execute a query in one shot",
	Long: `Plan the query into a subtask graph and execute it immediately,
printing live status to the terminal.

Examples:
  vishva run "find a movie playing tonight and how to get there"
  vishva run --plan-only "plan a day trip to the coast"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return runQuery(cmd.Context(), query)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runShowPlan, "plan-only", false, "Plan the query and print the subtask graph without executing")
}

func runQuery(parent context.Context, query string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Cyan("Planning: %s", query)
	task, err := eng.planner.ConvertQueryToTask(ctx, query)
	if err != nil {
		return fmt.Errorf("plan query: %w", err)
	}

	if task.NeedsClarification {
		color.Yellow("Clarification needed:")
		fmt.Println(task.ClarificationPrompt)
		return nil
	}

	color.Cyan("Plan: %d subtasks in domain %q", len(task.Subtasks), task.Domain)
	fmt.Println(task.DependencyStructure())

	if runShowPlan {
		return nil
	}

	eng.orchestrator.AddTask(task)
	result, err := eng.orchestrator.ExecuteTask(ctx, task, printStatus)
	if err != nil {
		color.Red("Execution failed: %v", err)
		return err
	}

	color.Green("Done: %s", result.Message)
	usage := eng.llm.Tracker().Usage()
	fmt.Printf("Token usage: %d in / %d out\n", usage.InputTokens, usage.OutputTokens)
	return nil
}

// printStatus renders one status update as a colored terminal line.
func printStatus(ctx context.Context, u executor.Update) error {
	label := u.SubtaskID
	if label == "" {
		label = "task"
	}

	line := fmt.Sprintf("[%s] %s", label, u.Message)
	switch u.Status {
	case models.TaskStatusCompleted:
		color.Green("%s", line)
	case models.TaskStatusFailed:
		color.Red("%s", line)
	default:
		fmt.Println(line)
	}
	return nil
}
