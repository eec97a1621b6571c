// Package planner converts a natural-language query into a Task: one
// structured model call produces the subtask breakdown with agent
// assignments, a second resolves the dependency edges between them.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/vishva-ai/vishva/internal/agents"
	"github.com/vishva-ai/vishva/internal/llm"
	"github.com/vishva-ai/vishva/pkg/models"
)

// Planner turns queries into executable task graphs.
type Planner struct {
	llm    llm.Completer
	agents *agents.Registry

	// Model overrides the completion client's default when non-empty.
	Model string
}

// New creates a planner over the given completion client and agent catalog.
func New(completer llm.Completer, registry *agents.Registry) *Planner {
	return &Planner{llm: completer, agents: registry}
}

type subtaskSpec struct {
	Title     string `json:"title"`
	AgentName string `json:"agent_name"`
	Detail    string `json:"detail"`
	Category  int    `json:"category"`
}

type plan struct {
	Domain              string        `json:"domain"`
	NeedsClarification  bool          `json:"needs_clarification"`
	ClarificationPrompt string        `json:"clarification_prompt"`
	Subtasks            []subtaskSpec `json:"subtasks"`
}

// ConvertQueryToTask plans the query into a Task with assigned agents and
// resolved dependencies. A plan naming any agent outside the catalog is
// unusable as a whole: the returned Task carries needs_clarification with
// no subtasks and dependency resolution is skipped.
func (p *Planner) ConvertQueryToTask(ctx context.Context, query string) (*models.Task, error) {
	now := time.Now()
	task := &models.Task{
		ID:        uuid.New().String(),
		Query:     query,
		Status:    models.TaskStatusPending,
		StartTime: &now,
	}

	raw, err := p.llm.Structured(ctx, llm.Request{
		Model:  p.Model,
		System: plannerSystem(p.agents.Catalog()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
	}, planSchema)
	if err != nil {
		return nil, fmt.Errorf("plan query: %w", err)
	}

	var parsed plan
	if err := remarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("plan query: %w", err)
	}

	task.Domain = parsed.Domain
	if parsed.NeedsClarification {
		task.NeedsClarification = true
		task.ClarificationPrompt = parsed.ClarificationPrompt
		return task, nil
	}

	var invalid []string
	for _, spec := range parsed.Subtasks {
		if !p.agents.Has(spec.AgentName) {
			invalid = append(invalid, spec.AgentName)
		}
	}
	if len(invalid) > 0 {
		task.NeedsClarification = true
		task.ClarificationPrompt = fmt.Sprintf(
			"The plan referenced unknown agents: %s. Valid agents are: %s. Please rephrase the request.",
			strings.Join(invalid, ", "),
			strings.Join(p.agents.Names(), ", "),
		)
		return task, nil
	}

	for i, spec := range parsed.Subtasks {
		task.Subtasks = append(task.Subtasks, &models.SubTask{
			ID:        fmt.Sprintf("%s_sub_%d", task.ID, i),
			TaskID:    task.ID,
			Title:     spec.Title,
			Detail:    spec.Detail,
			AgentName: spec.AgentName,
			Category:  spec.Category,
			Status:    models.TaskStatusPending,
		})
	}

	if err := p.ResolveDependencies(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

type dependencyPair struct {
	SubtaskID string `json:"subtask_id"`
	DependsOn string `json:"depends_on"`
}

type dependencyPlan struct {
	Dependencies []dependencyPair `json:"dependencies"`
}

// ResolveDependencies asks the model for the edges between task.Subtasks
// and attaches them in place, replacing any existing edges. Pairs with an
// empty depends_on carry no edge; pairs naming unknown subtask IDs are
// dropped. No cycle detection happens here.
func (p *Planner) ResolveDependencies(ctx context.Context, task *models.Task) error {
	if len(task.Subtasks) < 2 {
		return nil
	}

	raw, err := p.llm.Structured(ctx, llm.Request{
		Model:  p.Model,
		System: resolverInstructions,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(resolverUser(task))),
		},
	}, dependencySchema)
	if err != nil {
		return fmt.Errorf("resolve dependencies: %w", err)
	}

	var parsed dependencyPlan
	if err := remarshal(raw, &parsed); err != nil {
		return fmt.Errorf("resolve dependencies: %w", err)
	}

	for _, st := range task.Subtasks {
		st.Dependencies = nil
	}
	for _, pair := range parsed.Dependencies {
		if pair.DependsOn == "" {
			continue
		}
		downstream := task.Subtask(pair.SubtaskID)
		if downstream == nil || task.Subtask(pair.DependsOn) == nil {
			continue
		}
		downstream.Dependencies = append(downstream.Dependencies, models.TaskDependency{
			UpstreamID:   pair.DependsOn,
			DownstreamID: pair.SubtaskID,
		})
	}
	return nil
}

// remarshal converts the loosely typed structured-output map into a typed
// destination via a JSON round trip.
func remarshal(raw map[string]any, dst any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode structured output: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}
