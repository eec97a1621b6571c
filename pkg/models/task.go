package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the current state of a task or subtask.
type TaskStatus string

const (
	// TaskStatusPending indicates the work has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the work is being executed.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the work finished with a usable result.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the work failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true once no further transitions are possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskResult is the outcome of executing a task or subtask.
// For a subtask, Data is either the finalized structured object or, on
// partial success, the accumulated tool-call results keyed by tool name.
type TaskResult struct {
	Status    TaskStatus     `json:"status"`
	Data      map[string]any `json:"data"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

// TaskDependency is a directed edge: the subtask owning this dependency
// cannot start until the upstream subtask has completed.
type TaskDependency struct {
	// UpstreamID is the subtask that must complete first.
	UpstreamID string `json:"upstream_id"`
	// DownstreamID is the subtask that waits.
	DownstreamID string `json:"downstream_id"`
}

// ToolCallResult records one tool invocation and its outcome.
// Arguments and Result are stringified key/value pairs; they exist for
// rendering into conversation turns, not for structured consumption.
type ToolCallResult struct {
	ToolName  string            `json:"tool_name"`
	Arguments map[string]string `json:"arguments"`
	Result    map[string]string `json:"result"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Interaction is one entry in a subtask's history: a model turn or a batch
// of tool calls. History is append-only and is only ever rendered as text
// for downstream context, never re-parsed.
type Interaction struct {
	AgentName string           `json:"agent_name"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ToolCallResult `json:"tool_calls,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// SubTask is one agent-assigned unit of work within a Task.
type SubTask struct {
	// ID is unique within the parent task (and globally, by construction:
	// "{task_id}_sub_{index}").
	ID string `json:"subtask_id"`
	// TaskID is the owning task.
	TaskID string `json:"task_id"`
	// Title is the short name of the subtask.
	Title string `json:"title"`
	// Detail is the natural-language instruction body.
	Detail string `json:"detail"`
	// AgentName names the agent that executes this subtask.
	AgentName string `json:"agent"`
	// Dependencies are the incoming edges this subtask waits on.
	Dependencies []TaskDependency `json:"dependencies,omitempty"`
	// Status is the subtask state machine: pending -> in_progress ->
	// completed | failed.
	Status TaskStatus `json:"status"`
	// Result is set once the subtask reaches a terminal state.
	Result *TaskResult `json:"result,omitempty"`
	// Category is the priority tier: 1 = required, 2 = optional enrichment.
	Category int `json:"category"`
	// History is the ordered log of model turns and tool calls.
	History []Interaction `json:"history,omitempty"`

	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Clone returns a copy whose slices and timestamps are detached from the
// original. Result data and recorded tool calls are shared; both are
// write-once and treated as immutable after that.
func (s *SubTask) Clone() *SubTask {
	out := *s
	out.Dependencies = append([]TaskDependency(nil), s.Dependencies...)
	out.History = append([]Interaction(nil), s.History...)
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	if s.StartTime != nil {
		ts := *s.StartTime
		out.StartTime = &ts
	}
	if s.EndTime != nil {
		ts := *s.EndTime
		out.EndTime = &ts
	}
	return &out
}

// CanExecute reports whether every dependency's upstream subtask has a
// completed result recorded. A subtask with no dependencies can always
// execute.
func (s *SubTask) CanExecute(completed map[string]TaskResult) bool {
	for _, dep := range s.Dependencies {
		result, ok := completed[dep.UpstreamID]
		if !ok || result.Status != TaskStatusCompleted {
			return false
		}
	}
	return true
}

// AddInteraction appends an entry to the subtask history and returns it.
func (s *SubTask) AddInteraction(agentName, role, content string, toolCalls []ToolCallResult) Interaction {
	interaction := Interaction{
		AgentName: agentName,
		Role:      role,
		Content:   content,
		ToolCalls: toolCalls,
		Timestamp: time.Now(),
	}
	s.History = append(s.History, interaction)
	return interaction
}

// FormattedHistory renders the interaction log as readable text for use as
// context in downstream subtasks.
func (s *SubTask) FormattedHistory() string {
	var b strings.Builder
	fmt.Fprintf(&b, "History for subtask %q:\n", s.Title)
	for _, interaction := range s.History {
		fmt.Fprintf(&b, "[%s] %s:\n", interaction.Timestamp.Format(time.RFC3339), interaction.AgentName)
		b.WriteString(interaction.Content)
		b.WriteString("\n")
		for _, tc := range interaction.ToolCalls {
			fmt.Fprintf(&b, "Tool Call: %s\n", tc.ToolName)
			fmt.Fprintf(&b, "Arguments: %v\n", tc.Arguments)
			fmt.Fprintf(&b, "Result: %v\n", tc.Result)
			if tc.Error != "" {
				fmt.Fprintf(&b, "Error: %s\n", tc.Error)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Task is the full unit of work derived from one user query: a DAG of
// subtasks. A Task owns its subtasks exclusively.
type Task struct {
	ID    string `json:"task_id"`
	Query string `json:"query"`
	// Domain is the planner's classification label (e.g. "Travel").
	Domain string `json:"domain,omitempty"`
	// NeedsClarification is set when the plan cannot be executed as-is;
	// ClarificationPrompt carries the question for the user.
	NeedsClarification  bool        `json:"needs_clarification"`
	ClarificationPrompt string      `json:"clarification_prompt,omitempty"`
	Subtasks            []*SubTask  `json:"subtasks"`
	Status              TaskStatus  `json:"status"`
	Result              *TaskResult `json:"result,omitempty"`
	StartTime           *time.Time  `json:"start_time,omitempty"`
	EndTime             *time.Time  `json:"end_time,omitempty"`
}

// Clone returns a deep copy of the task and its subtasks, safe to read
// while the original is being executed.
func (t *Task) Clone() *Task {
	out := *t
	out.Subtasks = make([]*SubTask, len(t.Subtasks))
	for i, st := range t.Subtasks {
		out.Subtasks[i] = st.Clone()
	}
	if t.Result != nil {
		r := *t.Result
		out.Result = &r
	}
	if t.StartTime != nil {
		ts := *t.StartTime
		out.StartTime = &ts
	}
	if t.EndTime != nil {
		ts := *t.EndTime
		out.EndTime = &ts
	}
	return &out
}

// Subtask returns the subtask with the given ID, or nil.
func (t *Task) Subtask(id string) *SubTask {
	for _, st := range t.Subtasks {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// Context renders the aggregated transcript of the given subtasks as text.
// This is how data flows between subtasks: downstream agents consume the
// rendered history of their dependencies, not typed objects. An empty id
// list renders every subtask.
func (t *Task) Context(subtaskIDs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task Context for %q\n", t.Query)
	fmt.Fprintf(&b, "Status: %s\n", t.Status)
	fmt.Fprintf(&b, "Domain: %s\n\n", t.Domain)

	if t.NeedsClarification {
		b.WriteString("Clarification Required:\n")
		fmt.Fprintf(&b, "Prompt: %s\n\n", t.ClarificationPrompt)
	}

	include := func(id string) bool {
		if len(subtaskIDs) == 0 {
			return true
		}
		for _, want := range subtaskIDs {
			if want == id {
				return true
			}
		}
		return false
	}

	for _, st := range t.Subtasks {
		if !include(st.ID) {
			continue
		}
		fmt.Fprintf(&b, "=== Subtask: %s ===\n", st.Title)
		fmt.Fprintf(&b, "Status: %s\n", st.Status)
		fmt.Fprintf(&b, "Agent: %s\n\n", st.AgentName)

		if len(st.Dependencies) > 0 {
			b.WriteString("Dependencies:\n")
			for _, dep := range st.Dependencies {
				fmt.Fprintf(&b, "- Depends on subtask: %s\n", dep.UpstreamID)
			}
			b.WriteString("\n")
		}

		if len(st.History) > 0 {
			b.WriteString(st.FormattedHistory())
		} else {
			b.WriteString("No interactions recorded yet.\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// DependencyStructure renders a tree view of the task's dependency graph,
// one root per subtask with no dependencies.
func (t *Task) DependencyStructure() string {
	dependents := make(map[string][]string)
	for _, st := range t.Subtasks {
		for _, dep := range st.Dependencies {
			dependents[dep.UpstreamID] = append(dependents[dep.UpstreamID], st.ID)
		}
	}

	var b strings.Builder
	visited := make(map[string]bool)

	var write func(id string, level int)
	write = func(id string, level int) {
		if visited[id] {
			return
		}
		visited[id] = true

		st := t.Subtask(id)
		if st == nil {
			return
		}
		prefix := strings.Repeat("│   ", level)
		if len(st.Dependencies) > 0 {
			upstream := make([]string, 0, len(st.Dependencies))
			for _, dep := range st.Dependencies {
				upstream = append(upstream, dep.UpstreamID)
			}
			fmt.Fprintf(&b, "%s├── %s (depends on: %s)\n", prefix, st.Title, strings.Join(upstream, ", "))
		} else {
			fmt.Fprintf(&b, "%s├── %s\n", prefix, st.Title)
		}
		fmt.Fprintf(&b, "%s│   └── ID: %s\n", prefix, st.ID)

		for _, depID := range dependents[id] {
			write(depID, level+1)
		}
	}

	var roots []string
	for _, st := range t.Subtasks {
		if len(st.Dependencies) == 0 {
			roots = append(roots, st.ID)
		}
	}
	// Every subtask has dependencies: the graph is degenerate, start anywhere.
	if len(roots) == 0 && len(t.Subtasks) > 0 {
		roots = []string{t.Subtasks[0].ID}
	}
	for _, id := range roots {
		write(id, 0)
	}
	return b.String()
}
