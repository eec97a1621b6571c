package models

// OutputSchema is the JSON schema a subtask's finalized result must conform
// to. Name identifies the schema in the model request; Schema is a standard
// JSON-schema object description.
type OutputSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

// Agent is an immutable worker descriptor. Agents are defined once at
// process start; many subtasks share the same Agent by read-only reference.
type Agent struct {
	// Name is the unique registry key.
	Name string `json:"name"`
	// Model is the language-model identifier used for this agent's calls.
	Model string `json:"model"`
	// Instructions is the agent's system prompt. If InstructionsFunc is
	// set, it takes precedence and is evaluated per execution.
	Instructions     string        `json:"instructions"`
	InstructionsFunc func() string `json:"-"`
	// Tools names the callables this agent may invoke, in registry order.
	Tools []string `json:"tools,omitempty"`
	// ToolChoice, when non-empty, forces the named tool on every round.
	ToolChoice string `json:"tool_choice,omitempty"`
	// ParallelToolCalls allows the model to request more than one tool
	// call per round.
	ParallelToolCalls bool `json:"parallel_tool_calls"`
	// OutputSchema, when set, is enforced at finalization. Nil means the
	// agent produces free text.
	OutputSchema *OutputSchema `json:"output_schema,omitempty"`
}

// SystemPrompt resolves the agent's instructions.
func (a *Agent) SystemPrompt() string {
	if a.InstructionsFunc != nil {
		return a.InstructionsFunc()
	}
	return a.Instructions
}
