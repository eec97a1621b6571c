package models

import (
	"strings"
	"testing"
	"time"
)

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if TaskStatus("blocked").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if !TaskStatusCompleted.Terminal() || !TaskStatusFailed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
	if TaskStatusPending.Terminal() || TaskStatusInProgress.Terminal() {
		t.Error("pending and in_progress must not be terminal")
	}
}

func TestCanExecuteNoDependencies(t *testing.T) {
	st := &SubTask{ID: "t1_sub_0"}

	if !st.CanExecute(nil) {
		t.Error("subtask with no dependencies must always be executable")
	}
}

func TestCanExecuteWithDependencies(t *testing.T) {
	st := &SubTask{
		ID: "t1_sub_1",
		Dependencies: []TaskDependency{
			{UpstreamID: "t1_sub_0", DownstreamID: "t1_sub_1"},
		},
	}

	completed := map[string]TaskResult{}
	if st.CanExecute(completed) {
		t.Error("expected not executable before upstream completes")
	}

	completed["t1_sub_0"] = TaskResult{Status: TaskStatusFailed}
	if st.CanExecute(completed) {
		t.Error("a failed upstream result must not satisfy the dependency")
	}

	completed["t1_sub_0"] = TaskResult{Status: TaskStatusCompleted}
	if !st.CanExecute(completed) {
		t.Error("expected executable once upstream completed")
	}
}

func TestCanExecuteAllDependenciesRequired(t *testing.T) {
	st := &SubTask{
		ID: "t1_sub_2",
		Dependencies: []TaskDependency{
			{UpstreamID: "t1_sub_0", DownstreamID: "t1_sub_2"},
			{UpstreamID: "t1_sub_1", DownstreamID: "t1_sub_2"},
		},
	}

	completed := map[string]TaskResult{
		"t1_sub_0": {Status: TaskStatusCompleted},
	}
	if st.CanExecute(completed) {
		t.Error("one satisfied dependency out of two must not be enough")
	}
}

func TestAddInteraction(t *testing.T) {
	st := &SubTask{ID: "t1_sub_0"}

	st.AddInteraction("Search Agent", "assistant", "looking things up", nil)
	st.AddInteraction("system", "system", "Tool execution results", []ToolCallResult{
		{ToolName: "web_search", Result: map[string]string{"title": "x"}, Timestamp: time.Now()},
	})

	if len(st.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(st.History))
	}
	if st.History[1].ToolCalls[0].ToolName != "web_search" {
		t.Errorf("unexpected tool name %q", st.History[1].ToolCalls[0].ToolName)
	}
}

func TestFormattedHistoryIncludesToolErrors(t *testing.T) {
	st := &SubTask{ID: "t1_sub_0", Title: "Find movie times"}
	st.AddInteraction("system", "system", "Tool execution results", []ToolCallResult{
		{ToolName: "web_search", Error: "network timeout", Timestamp: time.Now()},
	})

	history := st.FormattedHistory()
	if !strings.Contains(history, "Find movie times") {
		t.Error("history must contain the subtask title")
	}
	if !strings.Contains(history, "network timeout") {
		t.Error("history must include tool errors")
	}
}

func TestSubTaskCloneIsDetached(t *testing.T) {
	start := time.Now()
	st := &SubTask{
		ID:        "t1_sub_0",
		TaskID:    "t1",
		Title:     "Find movie times",
		Status:    TaskStatusInProgress,
		StartTime: &start,
		Dependencies: []TaskDependency{
			{UpstreamID: "t1_sub_9", DownstreamID: "t1_sub_0"},
		},
	}
	st.AddInteraction("Search Agent", "assistant", "searching", nil)

	clone := st.Clone()
	clone.Status = TaskStatusCompleted
	clone.AddInteraction("Search Agent", "assistant", "found it", nil)
	clone.Dependencies[0].UpstreamID = "other"
	*clone.StartTime = start.Add(time.Hour)

	if st.Status != TaskStatusInProgress {
		t.Errorf("original status mutated: %q", st.Status)
	}
	if len(st.History) != 1 {
		t.Errorf("original history mutated: %d entries", len(st.History))
	}
	if st.Dependencies[0].UpstreamID != "t1_sub_9" {
		t.Error("original dependencies mutated")
	}
	if !st.StartTime.Equal(start) {
		t.Error("original timestamp mutated")
	}
}

func TestTaskCloneIsDetached(t *testing.T) {
	task := &Task{
		ID:     "t1",
		Query:  "plan a movie night",
		Status: TaskStatusInProgress,
		Subtasks: []*SubTask{
			{ID: "t1_sub_0", TaskID: "t1", Title: "Find movies", Status: TaskStatusPending},
		},
	}

	clone := task.Clone()
	if clone == task || clone.Subtasks[0] == task.Subtasks[0] {
		t.Fatal("clone must not alias the original")
	}
	clone.Status = TaskStatusFailed
	clone.Subtasks[0].Status = TaskStatusFailed

	if task.Status != TaskStatusInProgress || task.Subtasks[0].Status != TaskStatusPending {
		t.Error("mutating the clone must not touch the original")
	}
}

func TestTaskContextFiltersSubtasks(t *testing.T) {
	task := &Task{
		ID:     "t1",
		Query:  "plan a movie night",
		Domain: "Entertainment",
		Status: TaskStatusInProgress,
		Subtasks: []*SubTask{
			{ID: "t1_sub_0", TaskID: "t1", Title: "Find movies", AgentName: "Search Agent"},
			{ID: "t1_sub_1", TaskID: "t1", Title: "Find theaters", AgentName: "Location Agent"},
		},
	}

	ctx := task.Context([]string{"t1_sub_0"})
	if !strings.Contains(ctx, "Find movies") {
		t.Error("context must include the requested subtask")
	}
	if strings.Contains(ctx, "Find theaters") {
		t.Error("context must exclude subtasks that were not requested")
	}

	full := task.Context(nil)
	if !strings.Contains(full, "Find theaters") {
		t.Error("empty filter must render every subtask")
	}
}

func TestDependencyStructure(t *testing.T) {
	task := &Task{
		ID: "t1",
		Subtasks: []*SubTask{
			{ID: "t1_sub_0", Title: "Search"},
			{ID: "t1_sub_1", Title: "Navigate", Dependencies: []TaskDependency{
				{UpstreamID: "t1_sub_0", DownstreamID: "t1_sub_1"},
			}},
		},
	}

	tree := task.DependencyStructure()
	if !strings.Contains(tree, "Search") || !strings.Contains(tree, "Navigate") {
		t.Errorf("tree missing nodes:\n%s", tree)
	}
	if !strings.Contains(tree, "depends on: t1_sub_0") {
		t.Errorf("tree missing dependency annotation:\n%s", tree)
	}
}

func TestAgentSystemPrompt(t *testing.T) {
	a := &Agent{Name: "Search Agent", Instructions: "static"}
	if a.SystemPrompt() != "static" {
		t.Errorf("expected static instructions, got %q", a.SystemPrompt())
	}

	a.InstructionsFunc = func() string { return "dynamic" }
	if a.SystemPrompt() != "dynamic" {
		t.Errorf("expected dynamic instructions to take precedence, got %q", a.SystemPrompt())
	}
}
