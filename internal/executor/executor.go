// Package executor runs a single subtask to completion: a bounded
// conversation loop with the assigned agent's model, tool-call rounds
// against the tool registry, and a structured finalization step. Tool
// failures never abort the loop; the model sees them and adapts.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/vishva-ai/vishva/internal/llm"
	"github.com/vishva-ai/vishva/internal/tools"
	"github.com/vishva-ai/vishva/pkg/models"
)

const (
	// DefaultMaxRounds bounds the conversation loop per subtask.
	DefaultMaxRounds = 5
	// DefaultPartialThreshold is the minimum count of successful tool
	// calls that lets a subtask complete with partial data when the
	// final structured response cannot be obtained.
	DefaultPartialThreshold = 3
)

// Update is one live progress event. An empty SubtaskID marks a task-level
// event.
type Update struct {
	TaskID    string            `json:"task_id"`
	SubtaskID string            `json:"subtask_id,omitempty"`
	Status    models.TaskStatus `json:"status"`
	Message   string            `json:"message"`
	Content   any               `json:"content,omitempty"`
}

// StatusCallback receives every state transition and tool invocation.
// It is the executor's only externally visible side effect.
type StatusCallback func(ctx context.Context, update Update) error

// AgentCatalog resolves agent names to their definitions. It is satisfied
// by the agents package's registry.
type AgentCatalog interface {
	Lookup(name string) (*models.Agent, error)
}

// Executor drives subtask conversations.
type Executor struct {
	llm    llm.Completer
	tools  *tools.Registry
	agents AgentCatalog

	// MaxRounds caps conversation rounds per subtask.
	MaxRounds int
	// PartialThreshold is the successful-tool-call count that converts
	// an otherwise failed finalization into a partial completion.
	PartialThreshold int
}

// New creates an executor with default bounds.
func New(completer llm.Completer, toolReg *tools.Registry, agentReg AgentCatalog) *Executor {
	return &Executor{
		llm:              completer,
		tools:            toolReg,
		agents:           agentReg,
		MaxRounds:        DefaultMaxRounds,
		PartialThreshold: DefaultPartialThreshold,
	}
}

// ExecuteSubtask runs one subtask to a terminal state, mutating its status,
// result, history, and timestamps in place. The returned error is non-nil
// exactly when the subtask ends FAILED; a partial completion is a success.
func (e *Executor) ExecuteSubtask(ctx context.Context, task *models.Task, sub *models.SubTask, callback StatusCallback) (*models.TaskResult, error) {
	agent, err := e.agents.Lookup(sub.AgentName)
	if err != nil {
		return e.fail(ctx, sub, callback, fmt.Errorf("subtask %s: %w", sub.ID, err), nil)
	}

	now := time.Now()
	sub.Status = models.TaskStatusInProgress
	sub.StartTime = &now
	e.report(ctx, callback, Update{
		TaskID:    task.ID,
		SubtaskID: sub.ID,
		Status:    models.TaskStatusInProgress,
		Message:   fmt.Sprintf("Starting %q with %s", sub.Title, sub.AgentName),
	})

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(e.initialPrompt(task, sub))),
	}
	toolDefs := e.tools.Definitions(agent.Tools)

	successfulCalls := 0
	var toolLog []models.ToolCallResult

	for round := 0; round < e.maxRounds(); round++ {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, sub, callback, fmt.Errorf("subtask %s canceled: %w", sub.ID, err), toolLog)
		}

		resp, err := e.llm.Complete(ctx, llm.Request{
			Model:             agent.Model,
			System:            agent.SystemPrompt(),
			Messages:          messages,
			Tools:             toolDefs,
			ToolChoice:        agent.ToolChoice,
			ParallelToolCalls: agent.ParallelToolCalls,
		})
		if err != nil {
			return e.fail(ctx, sub, callback, fmt.Errorf("subtask %s: %w", sub.ID, err), toolLog)
		}

		if len(resp.ToolCalls) == 0 {
			sub.AddInteraction(sub.AgentName, "assistant", resp.Text, nil)
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(resp.Text)))
			return e.finalize(ctx, task, sub, agent, messages, callback, successfulCalls, toolLog)
		}

		results, blocks := e.runToolCalls(ctx, task, sub, resp.ToolCalls, callback)
		for _, r := range results {
			if r.Error == "" {
				successfulCalls++
			}
		}
		toolLog = append(toolLog, results...)
		sub.AddInteraction(sub.AgentName, "assistant", resp.Text, results)

		assistantBlocks := make([]anthropic.ContentBlockParamUnion, 0, len(resp.ToolCalls)+1)
		if resp.Text != "" {
			assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(resp.Text))
		}
		for _, tc := range resp.ToolCalls {
			assistantBlocks = append(assistantBlocks, anthropic.NewToolUseBlock(tc.ID, tc.Input, tc.Name))
		}
		messages = append(messages,
			anthropic.NewAssistantMessage(assistantBlocks...),
			anthropic.NewUserMessage(blocks...),
		)
	}

	// Round budget exhausted without a final answer.
	if successfulCalls >= e.partialThreshold() {
		return e.completePartial(ctx, task, sub, callback, toolLog,
			fmt.Sprintf("Completed with partial results after %d rounds", e.maxRounds()))
	}
	return e.fail(ctx, sub, callback,
		fmt.Errorf("subtask %s: exhausted %d rounds with %d successful tool calls", sub.ID, e.maxRounds(), successfulCalls),
		toolLog)
}

// runToolCalls invokes each requested tool, synthesizing error results for
// unknown names, and returns both the history records and the tool-result
// conversation blocks.
func (e *Executor) runToolCalls(ctx context.Context, task *models.Task, sub *models.SubTask, calls []llm.ToolCall, callback StatusCallback) ([]models.ToolCallResult, []anthropic.ContentBlockParamUnion) {
	results := make([]models.ToolCallResult, 0, len(calls))
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(calls))

	for _, call := range calls {
		e.report(ctx, callback, Update{
			TaskID:    task.ID,
			SubtaskID: sub.ID,
			Status:    models.TaskStatusInProgress,
			Message:   fmt.Sprintf("Calling tool %s", call.Name),
		})

		var args map[string]any
		if len(call.Input) > 0 {
			if err := json.Unmarshal(call.Input, &args); err != nil {
				args = nil
			}
		}

		record := models.ToolCallResult{
			ToolName:  call.Name,
			Arguments: stringifyArgs(args),
			Timestamp: time.Now(),
		}

		descriptor, err := e.tools.Lookup(call.Name)
		if err != nil {
			record.Error = err.Error()
		} else {
			out, err := descriptor.Invoke(ctx, args)
			if err != nil {
				record.Error = err.Error()
			} else {
				record.Result = out
			}
		}

		results = append(results, record)
		blocks = append(blocks, toolResultBlock(call.ID, record))

		message := fmt.Sprintf("Gathered information using %s", call.Name)
		if record.Error != "" {
			message = fmt.Sprintf("Tool %s failed: %s", call.Name, record.Error)
		}
		e.report(ctx, callback, Update{
			TaskID:    task.ID,
			SubtaskID: sub.ID,
			Status:    models.TaskStatusInProgress,
			Message:   message,
		})
	}
	return results, blocks
}

// finalize produces the subtask's terminal result after the model stops
// requesting tools. Agents without an output schema complete with their
// free text; schema-bearing agents get one structured request, with the
// partial-success rule covering a failed parse.
func (e *Executor) finalize(ctx context.Context, task *models.Task, sub *models.SubTask, agent *models.Agent, messages []anthropic.MessageParam, callback StatusCallback, successfulCalls int, toolLog []models.ToolCallResult) (*models.TaskResult, error) {
	e.report(ctx, callback, Update{
		TaskID:    task.ID,
		SubtaskID: sub.ID,
		Status:    models.TaskStatusInProgress,
		Message:   "Finalizing results",
	})

	if agent.OutputSchema == nil {
		text := lastAssistantText(sub)
		return e.complete(ctx, task, sub, callback, map[string]any{"response": text}, "Completed")
	}

	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(
		"Record the final result for this subtask in the required structure.")))

	data, err := e.llm.Structured(ctx, llm.Request{
		Model:    agent.Model,
		System:   agent.SystemPrompt(),
		Messages: messages,
	}, agent.OutputSchema)
	if err == nil {
		return e.complete(ctx, task, sub, callback, data, "Completed")
	}

	if successfulCalls >= e.partialThreshold() {
		return e.completePartial(ctx, task, sub, callback, toolLog,
			"Completed with partial results (structured response unavailable)")
	}
	return e.fail(ctx, sub, callback, fmt.Errorf("subtask %s: %w", sub.ID, err), toolLog)
}

func (e *Executor) complete(ctx context.Context, task *models.Task, sub *models.SubTask, callback StatusCallback, data map[string]any, message string) (*models.TaskResult, error) {
	result := &models.TaskResult{
		Status:    models.TaskStatusCompleted,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	}
	e.settle(sub, result)
	e.report(ctx, callback, Update{
		TaskID:    task.ID,
		SubtaskID: sub.ID,
		Status:    models.TaskStatusCompleted,
		Message:   message,
		Content:   data,
	})
	return result, nil
}

// completePartial packages the successful tool calls as the result data,
// keyed by tool name. Later calls to the same tool overwrite earlier ones.
func (e *Executor) completePartial(ctx context.Context, task *models.Task, sub *models.SubTask, callback StatusCallback, toolLog []models.ToolCallResult, message string) (*models.TaskResult, error) {
	data := map[string]any{"partial": true}
	for _, r := range toolLog {
		if r.Error == "" {
			data[r.ToolName] = r.Result
		}
	}
	return e.complete(ctx, task, sub, callback, data, message)
}

func (e *Executor) fail(ctx context.Context, sub *models.SubTask, callback StatusCallback, cause error, toolLog []models.ToolCallResult) (*models.TaskResult, error) {
	result := &models.TaskResult{
		Status:    models.TaskStatusFailed,
		Message:   cause.Error(),
		Timestamp: time.Now(),
	}
	if len(toolLog) > 0 {
		result.Data = map[string]any{"tool_results": toolLog}
	}
	e.settle(sub, result)
	e.report(ctx, callback, Update{
		TaskID:    sub.TaskID,
		SubtaskID: sub.ID,
		Status:    models.TaskStatusFailed,
		Message:   cause.Error(),
	})
	return result, cause
}

func (e *Executor) settle(sub *models.SubTask, result *models.TaskResult) {
	now := time.Now()
	sub.Status = result.Status
	sub.Result = result
	sub.EndTime = &now
}

// report delivers a status update; callback failures must not disturb
// execution.
func (e *Executor) report(ctx context.Context, callback StatusCallback, update Update) {
	if callback == nil {
		return
	}
	_ = callback(ctx, update)
}

// initialPrompt renders the subtask instructions plus the formatted history
// of every dependency. Upstream data flows downstream as text.
func (e *Executor) initialPrompt(task *models.Task, sub *models.SubTask) string {
	prompt := fmt.Sprintf("Subtask: %s\n\n%s", sub.Title, sub.Detail)
	if len(sub.Dependencies) == 0 {
		return prompt
	}

	depIDs := make([]string, 0, len(sub.Dependencies))
	for _, dep := range sub.Dependencies {
		depIDs = append(depIDs, dep.UpstreamID)
	}
	return prompt + "\n\nContext from completed dependencies:\n" + task.Context(depIDs)
}

func (e *Executor) maxRounds() int {
	if e.MaxRounds > 0 {
		return e.MaxRounds
	}
	return DefaultMaxRounds
}

func (e *Executor) partialThreshold() int {
	if e.PartialThreshold > 0 {
		return e.PartialThreshold
	}
	return DefaultPartialThreshold
}

func toolResultBlock(callID string, record models.ToolCallResult) anthropic.ContentBlockParamUnion {
	if record.Error != "" {
		return anthropic.NewToolResultBlock(callID, record.Error, true)
	}
	encoded, err := json.Marshal(record.Result)
	if err != nil {
		return anthropic.NewToolResultBlock(callID, fmt.Sprintf("%v", record.Result), false)
	}
	return anthropic.NewToolResultBlock(callID, string(encoded), false)
}

func stringifyArgs(args map[string]any) map[string]string {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func lastAssistantText(sub *models.SubTask) string {
	for i := len(sub.History) - 1; i >= 0; i-- {
		if sub.History[i].Role == "assistant" && sub.History[i].Content != "" {
			return sub.History[i].Content
		}
	}
	return ""
}
