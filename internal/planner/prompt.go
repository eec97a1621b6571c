package planner

import (
	"fmt"
	"strings"

	"github.com/vishva-ai/vishva/pkg/models"
)

const plannerInstructions = `You are a task planning assistant that breaks down user queries into actionable subtasks.

Your role is to:
1. Understand the user's query and its broader implications
2. Break down the task into logical subtasks
3. Assign appropriate agents to each subtask
4. Determine if any clarification is needed from the user

For each subtask, consider:
- Is it directly necessary (category 1) or optionally helpful (category 2)?
- Which agent is best suited for this specific subtask?
- What specific actions will be taken? Describe them in future tense.`

const resolverInstructions = `You are a dependency analysis agent that determines the relationships and dependencies between subtasks.

Your role is to:
1. Analyze the provided task and its subtasks
2. Identify which subtasks depend on others
3. Create a logical execution order

Consider:
- Which tasks must be completed before others can begin?
- What specific data or information needs to flow between tasks?
- Are there any parallel execution opportunities?

For each subtask, report the ID of the subtask whose output it logically
requires, or an empty string if it can start immediately.`

func plannerSystem(catalog string) string {
	return fmt.Sprintf(`%s

Available Agents and their capabilities (you MUST only choose from this list):
%s`, plannerInstructions, catalog)
}

func resolverUser(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task domain: %s\n\nSubtasks:\n", task.Domain)
	for _, st := range task.Subtasks {
		fmt.Fprintf(&b, "- id: %s\n  title: %s\n  agent: %s\n  detail: %s\n",
			st.ID, st.Title, st.AgentName, st.Detail)
	}
	return b.String()
}

var planSchema = &models.OutputSchema{
	Name: "task_plan",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"domain": map[string]any{
				"type":        "string",
				"description": "Category of the task (e.g., Entertainment, Travel, Shopping)",
			},
			"needs_clarification": map[string]any{
				"type":        "boolean",
				"description": "Whether clarification is needed from the user",
			},
			"clarification_prompt": map[string]any{
				"type":        "string",
				"description": "Question to ask the user for clarification if needed",
			},
			"subtasks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{
							"type":        "string",
							"description": "Name of the subtask",
						},
						"agent_name": map[string]any{
							"type":        "string",
							"description": "Name of the agent to handle this subtask",
						},
						"detail": map[string]any{
							"type":        "string",
							"description": "Description of what will be done, in future tense",
						},
						"category": map[string]any{
							"type":        "integer",
							"enum":        []int{1, 2},
							"description": "1: directly necessary, 2: optionally helpful",
						},
					},
					"required": []string{"title", "agent_name", "detail", "category"},
				},
			},
		},
		"required": []string{"domain", "needs_clarification", "subtasks"},
	},
}

var dependencySchema = &models.OutputSchema{
	Name: "subtask_dependencies",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dependencies": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"subtask_id": map[string]any{
							"type":        "string",
							"description": "ID of the subtask that depends on another",
						},
						"depends_on": map[string]any{
							"type":        "string",
							"description": "ID of the subtask that must complete first, or empty if none",
						},
					},
					"required": []string{"subtask_id", "depends_on"},
				},
			},
		},
		"required": []string{"dependencies"},
	},
}
