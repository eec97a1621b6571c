package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vishva-ai/vishva/internal/executor"
	"github.com/vishva-ai/vishva/pkg/models"
)

// fakeRunner completes subtasks instantly, recording start order, unless a
// subtask ID is scripted to fail.
type fakeRunner struct {
	mu       sync.Mutex
	started  []string
	running  int
	maxSeen  int
	failIDs  map[string]error
	settleIn time.Duration
}

func (f *fakeRunner) ExecuteSubtask(ctx context.Context, task *models.Task, sub *models.SubTask, callback executor.StatusCallback) (*models.TaskResult, error) {
	f.mu.Lock()
	f.started = append(f.started, sub.ID)
	f.running++
	if f.running > f.maxSeen {
		f.maxSeen = f.running
	}
	f.mu.Unlock()

	if f.settleIn > 0 {
		time.Sleep(f.settleIn)
	}

	f.mu.Lock()
	f.running--
	f.mu.Unlock()

	if err, ok := f.failIDs[sub.ID]; ok {
		sub.Status = models.TaskStatusFailed
		sub.Result = &models.TaskResult{Status: models.TaskStatusFailed, Message: err.Error()}
		return sub.Result, err
	}

	sub.Status = models.TaskStatusCompleted
	sub.Result = &models.TaskResult{
		Status:    models.TaskStatusCompleted,
		Data:      map[string]any{"id": sub.ID},
		Timestamp: time.Now(),
	}
	return sub.Result, nil
}

func (f *fakeRunner) startedBefore(a, b string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ai, bi := -1, -1
	for i, id := range f.started {
		if id == a {
			ai = i
		}
		if id == b {
			bi = i
		}
	}
	return ai >= 0 && bi >= 0 && ai < bi
}

func dep(upstream, downstream string) models.TaskDependency {
	return models.TaskDependency{UpstreamID: upstream, DownstreamID: downstream}
}

// fanOutTask builds: s0 -> {s1, s2}, both depending on s0.
func fanOutTask() *models.Task {
	return &models.Task{
		ID:     "t1",
		Status: models.TaskStatusPending,
		Subtasks: []*models.SubTask{
			{ID: "t1_sub_0", TaskID: "t1", Title: "theaters", Status: models.TaskStatusPending},
			{ID: "t1_sub_1", TaskID: "t1", Title: "showtimes", Status: models.TaskStatusPending,
				Dependencies: []models.TaskDependency{dep("t1_sub_0", "t1_sub_1")}},
			{ID: "t1_sub_2", TaskID: "t1", Title: "directions", Status: models.TaskStatusPending,
				Dependencies: []models.TaskDependency{dep("t1_sub_0", "t1_sub_2")}},
		},
	}
}

func TestExecuteTaskWaveOrdering(t *testing.T) {
	runner := &fakeRunner{}
	o := New(runner)
	task := fanOutTask()

	result, err := o.ExecuteTask(context.Background(), task, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != models.TaskStatusCompleted {
		t.Errorf("result status = %q", result.Status)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %q", task.Status)
	}
	if result.Data["completed_subtasks"] != 3 {
		t.Errorf("unexpected summary: %+v", result.Data)
	}

	if !runner.startedBefore("t1_sub_0", "t1_sub_1") || !runner.startedBefore("t1_sub_0", "t1_sub_2") {
		t.Errorf("dependents must not start before their dependency: %v", runner.started)
	}

	for _, id := range []string{"t1_sub_0", "t1_sub_1", "t1_sub_2"} {
		if _, ok := o.CompletedResult(id); !ok {
			t.Errorf("missing completed result for %s", id)
		}
	}
}

func TestExecuteTaskStalledGraph(t *testing.T) {
	task := &models.Task{
		ID:     "t1",
		Status: models.TaskStatusPending,
		Subtasks: []*models.SubTask{
			{ID: "t1_sub_0", TaskID: "t1", Status: models.TaskStatusPending,
				Dependencies: []models.TaskDependency{dep("t1_sub_1", "t1_sub_0")}},
			{ID: "t1_sub_1", TaskID: "t1", Status: models.TaskStatusPending,
				Dependencies: []models.TaskDependency{dep("t1_sub_0", "t1_sub_1")}},
		},
	}
	o := New(&fakeRunner{})

	_, err := o.ExecuteTask(context.Background(), task, nil)
	if !errors.Is(err, ErrGraphStalled) {
		t.Fatalf("expected ErrGraphStalled, got %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %q", task.Status)
	}
}

func TestExecuteTaskPartialStall(t *testing.T) {
	// sub_1 depends on a subtask ID that does not exist; sub_0 completes,
	// then the graph stalls.
	task := &models.Task{
		ID:     "t1",
		Status: models.TaskStatusPending,
		Subtasks: []*models.SubTask{
			{ID: "t1_sub_0", TaskID: "t1", Status: models.TaskStatusPending},
			{ID: "t1_sub_1", TaskID: "t1", Status: models.TaskStatusPending,
				Dependencies: []models.TaskDependency{dep("t9_sub_9", "t1_sub_1")}},
		},
	}
	o := New(&fakeRunner{})

	_, err := o.ExecuteTask(context.Background(), task, nil)
	if !errors.Is(err, ErrGraphStalled) {
		t.Fatalf("expected ErrGraphStalled, got %v", err)
	}
	if task.Subtasks[0].Status != models.TaskStatusCompleted {
		t.Error("the runnable subtask must still complete before the stall")
	}
}

func TestExecuteTaskWaveFailureAborts(t *testing.T) {
	cause := errors.New("executor blew up")
	runner := &fakeRunner{failIDs: map[string]error{"t1_sub_1": cause}}
	o := New(runner)
	task := fanOutTask()

	_, err := o.ExecuteTask(context.Background(), task, nil)
	if !errors.Is(err, cause) {
		t.Fatalf("expected the subtask error to propagate, got %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %q", task.Status)
	}
	// The parallel sibling either completed or was marked failed; it must
	// not be left pending.
	if task.Subtasks[2].Status == models.TaskStatusPending {
		t.Error("wave members must not remain pending after an aborted wave")
	}
}

func TestExecuteTaskBoundsConcurrency(t *testing.T) {
	subtasks := make([]*models.SubTask, 6)
	for i := range subtasks {
		subtasks[i] = &models.SubTask{
			ID:     "t1_sub_" + string(rune('0'+i)),
			TaskID: "t1",
			Status: models.TaskStatusPending,
		}
	}
	task := &models.Task{ID: "t1", Status: models.TaskStatusPending, Subtasks: subtasks}

	runner := &fakeRunner{settleIn: 20 * time.Millisecond}
	o := New(runner)
	o.MaxConcurrent = 2

	if _, err := o.ExecuteTask(context.Background(), task, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.maxSeen > 2 {
		t.Errorf("wave width exceeded cap: saw %d concurrent", runner.maxSeen)
	}
}

func TestExecuteTaskStatusUpdates(t *testing.T) {
	runner := &fakeRunner{}
	o := New(runner)
	task := fanOutTask()

	var mu sync.Mutex
	var statuses []models.TaskStatus
	callback := func(ctx context.Context, u executor.Update) error {
		if u.SubtaskID == "" {
			mu.Lock()
			statuses = append(statuses, u.Status)
			mu.Unlock()
		}
		return nil
	}

	if _, err := o.ExecuteTask(context.Background(), task, callback); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 2 || statuses[0] != models.TaskStatusInProgress || statuses[1] != models.TaskStatusCompleted {
		t.Errorf("unexpected task-level updates: %v", statuses)
	}
}

func TestTaskSnapshotIsDetached(t *testing.T) {
	o := New(&fakeRunner{})
	task := fanOutTask()
	o.AddTask(task)

	snap, err := o.TaskSnapshot("t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap == task {
		t.Fatal("snapshot must not alias the stored task")
	}

	snap.Status = models.TaskStatusFailed
	snap.Subtasks[0].Status = models.TaskStatusFailed
	snap.Subtasks[0].AddInteraction("Search Agent", "assistant", "mutated", nil)

	if task.Status != models.TaskStatusPending || task.Subtasks[0].Status != models.TaskStatusPending {
		t.Error("mutating a snapshot must not touch the stored task")
	}
	if len(task.Subtasks[0].History) != 0 {
		t.Error("snapshot history must be detached")
	}

	if _, err := o.TaskSnapshot("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskSnapshotDuringExecution(t *testing.T) {
	runner := &fakeRunner{settleIn: 5 * time.Millisecond}
	o := New(runner)
	task := fanOutTask()
	o.AddTask(task)

	done := make(chan error, 1)
	go func() {
		_, err := o.ExecuteTask(context.Background(), task, nil)
		done <- err
	}()

	// Snapshots taken mid-execution must always be internally consistent.
	for {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			snap, err := o.TaskSnapshot("t1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if snap.Status != models.TaskStatusCompleted {
				t.Errorf("final snapshot status = %q", snap.Status)
			}
			return
		default:
			snap, err := o.TaskSnapshot("t1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, sub := range snap.Subtasks {
				if !sub.Status.Valid() {
					t.Fatalf("snapshot observed invalid status %q", sub.Status)
				}
			}
		}
	}
}

func TestTaskStore(t *testing.T) {
	o := New(&fakeRunner{})
	task := fanOutTask()
	o.AddTask(task)

	got, err := o.Task("t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != task {
		t.Error("store must return the same task")
	}

	if _, err := o.Task("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}
