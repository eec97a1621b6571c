// Package orchestrator schedules a task's subtask graph in waves: each wave
// runs every pending subtask whose dependencies have completed results,
// concurrently up to a configured cap, then merges results before computing
// the next wave. A subtask never starts before all of its dependencies have
// a completed result recorded.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vishva-ai/vishva/internal/executor"
	"github.com/vishva-ai/vishva/pkg/models"
)

// DefaultMaxConcurrent caps how many subtasks of one wave run at once.
const DefaultMaxConcurrent = 8

// ErrGraphStalled indicates the ready set went empty while pending subtasks
// remain: a dependency cycle, or an edge onto a subtask that will never
// complete.
var ErrGraphStalled = errors.New("task graph stalled: pending subtasks with unsatisfiable dependencies")

// ErrTaskNotFound indicates a lookup for an unknown task ID.
var ErrTaskNotFound = errors.New("task not found")

// SubtaskRunner executes one subtask to a terminal state. Satisfied by the
// executor package.
type SubtaskRunner interface {
	ExecuteSubtask(ctx context.Context, task *models.Task, sub *models.SubTask, callback executor.StatusCallback) (*models.TaskResult, error)
}

// Orchestrator owns the task store and runs task graphs wave by wave.
type Orchestrator struct {
	runner SubtaskRunner

	// MaxConcurrent bounds wave width. Zero means DefaultMaxConcurrent.
	MaxConcurrent int

	mu    sync.RWMutex
	tasks map[string]*models.Task
	// completedResults is keyed by subtask ID, which is globally unique
	// by construction, so one map serves all tasks.
	completedResults map[string]models.TaskResult
}

// New creates an orchestrator over the given subtask runner.
func New(runner SubtaskRunner) *Orchestrator {
	return &Orchestrator{
		runner:           runner,
		MaxConcurrent:    DefaultMaxConcurrent,
		tasks:            make(map[string]*models.Task),
		completedResults: make(map[string]models.TaskResult),
	}
}

// AddTask stores a planned task for later execution.
func (o *Orchestrator) AddTask(task *models.Task) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tasks[task.ID] = task
}

// Task returns a stored task by ID.
func (o *Orchestrator) Task(id string) (*models.Task, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	task, ok := o.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return task, nil
}

// TaskSnapshot returns a deep copy of a stored task, safe to serialize
// while the task executes.
func (o *Orchestrator) TaskSnapshot(id string) (*models.Task, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	task, ok := o.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return task.Clone(), nil
}

// CompletedResult returns the recorded result for a subtask ID.
func (o *Orchestrator) CompletedResult(subtaskID string) (models.TaskResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	result, ok := o.completedResults[subtaskID]
	return result, ok
}

// ExecuteTask runs the task's subtask graph to completion. A failing
// subtask aborts the whole task: remaining members of its wave are marked
// failed and the error propagates. An empty ready set with pending work
// left returns ErrGraphStalled.
//
// Wave goroutines execute against clones of their subtasks; the canonical
// task is only mutated under the orchestrator's lock, so snapshots taken
// via TaskSnapshot never observe a half-written subtask.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task *models.Task, callback executor.StatusCallback) (*models.TaskResult, error) {
	now := time.Now()
	o.mu.Lock()
	task.Status = models.TaskStatusInProgress
	task.StartTime = &now
	o.mu.Unlock()
	o.notify(ctx, callback, executor.Update{
		TaskID:  task.ID,
		Status:  models.TaskStatusInProgress,
		Message: fmt.Sprintf("Executing %d subtasks", len(task.Subtasks)),
	})

	completed := 0
	for completed < len(task.Subtasks) {
		wave := o.readySet(task)
		if len(wave) == 0 {
			debugLog("task %s stalled: %d/%d subtasks completed, no pending subtask is ready", task.ID, completed, len(task.Subtasks))
			return o.failTask(ctx, task, callback,
				fmt.Errorf("%w: %d of %d subtasks completed", ErrGraphStalled, completed, len(task.Subtasks)))
		}
		debugLog("task %s wave of %d: %s", task.ID, len(wave), waveIDs(wave))

		clones := make([]*models.SubTask, len(wave))
		o.mu.Lock()
		for i, sub := range wave {
			sub.Status = models.TaskStatusInProgress
			clones[i] = sub.Clone()
		}
		o.mu.Unlock()

		results := make([]*models.TaskResult, len(wave))
		g, waveCtx := errgroup.WithContext(ctx)
		g.SetLimit(o.maxConcurrent())
		for i := range wave {
			g.Go(func() error {
				result, err := o.runner.ExecuteSubtask(waveCtx, task, clones[i], callback)
				results[i] = result
				return err
			})
		}
		waveErr := g.Wait()

		// Single-writer merge: the clones' terminal state lands on the
		// canonical subtasks only after the whole wave has settled.
		o.mu.Lock()
		for i, sub := range wave {
			*sub = *clones[i]
			if results[i] != nil && results[i].Status == models.TaskStatusCompleted {
				o.completedResults[sub.ID] = *results[i]
				completed++
			}
			if waveErr != nil && !sub.Status.Terminal() {
				sub.Status = models.TaskStatusFailed
			}
		}
		o.mu.Unlock()

		if waveErr != nil {
			debugLog("task %s wave failed: %v", task.ID, waveErr)
			return o.failTask(ctx, task, callback, fmt.Errorf("task %s: %w", task.ID, waveErr))
		}
	}

	end := time.Now()
	result := &models.TaskResult{
		Status: models.TaskStatusCompleted,
		Data: map[string]any{
			"completed_subtasks": completed,
			"total_subtasks":     len(task.Subtasks),
		},
		Message:   fmt.Sprintf("Completed %d subtasks", completed),
		Timestamp: end,
	}
	o.mu.Lock()
	task.Status = models.TaskStatusCompleted
	task.EndTime = &end
	task.Result = result
	o.mu.Unlock()
	o.notify(ctx, callback, executor.Update{
		TaskID:  task.ID,
		Status:  models.TaskStatusCompleted,
		Message: result.Message,
		Content: result.Data,
	})
	return result, nil
}

// readySet returns every pending subtask whose dependencies all have
// completed results recorded.
func (o *Orchestrator) readySet(task *models.Task) []*models.SubTask {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var ready []*models.SubTask
	for _, sub := range task.Subtasks {
		if sub.Status == models.TaskStatusPending && sub.CanExecute(o.completedResults) {
			ready = append(ready, sub)
		}
	}
	return ready
}

func (o *Orchestrator) failTask(ctx context.Context, task *models.Task, callback executor.StatusCallback, cause error) (*models.TaskResult, error) {
	end := time.Now()
	result := &models.TaskResult{
		Status:    models.TaskStatusFailed,
		Message:   cause.Error(),
		Timestamp: end,
	}
	o.mu.Lock()
	task.Status = models.TaskStatusFailed
	task.EndTime = &end
	task.Result = result
	o.mu.Unlock()
	o.notify(ctx, callback, executor.Update{
		TaskID:  task.ID,
		Status:  models.TaskStatusFailed,
		Message: cause.Error(),
	})
	return result, cause
}

func (o *Orchestrator) notify(ctx context.Context, callback executor.StatusCallback, update executor.Update) {
	if callback == nil {
		return
	}
	_ = callback(ctx, update)
}

func waveIDs(wave []*models.SubTask) string {
	ids := make([]string, len(wave))
	for i, sub := range wave {
		ids[i] = sub.ID
	}
	return strings.Join(ids, ", ")
}

func (o *Orchestrator) maxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return DefaultMaxConcurrent
}
