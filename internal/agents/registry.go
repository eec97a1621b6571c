// Package agents holds the static catalog of execution agents the planner
// can assign subtasks to. The catalog is fixed at startup; an optional YAML
// overrides file can retarget an agent's model or instructions without a
// rebuild.
package agents

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vishva-ai/vishva/pkg/models"
)

// ErrUnknownAgent indicates a lookup for an agent name not in the catalog.
var ErrUnknownAgent = errors.New("unknown agent")

// Registry is the fixed set of execution agents, keyed by exact name.
type Registry struct {
	agents map[string]*models.Agent
	order  []string
}

// NewRegistry builds the registry with the built-in agent catalog.
func NewRegistry() *Registry {
	r := &Registry{agents: make(map[string]*models.Agent)}
	for _, a := range builtinAgents() {
		r.agents[a.Name] = a
		r.order = append(r.order, a.Name)
	}
	return r
}

// Lookup returns the agent for an exact, case-sensitive name.
func (r *Registry) Lookup(name string) (*models.Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	return a, nil
}

// Has reports whether name is in the catalog.
func (r *Registry) Has(name string) bool {
	_, ok := r.agents[name]
	return ok
}

// Names returns the catalog's agent names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Catalog renders the agent list for the planner prompt, one line per agent
// with its specialty summarized from the first instruction line.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, name := range r.order {
		a := r.agents[name]
		summary := strings.TrimSpace(strings.SplitN(a.SystemPrompt(), "\n", 2)[0])
		fmt.Fprintf(&b, "- %s: %s\n", name, summary)
	}
	return b.String()
}

// agentOverride is one entry in the overrides YAML file.
type agentOverride struct {
	Model        string `yaml:"model"`
	Instructions string `yaml:"instructions"`
}

// LoadOverrides applies per-agent model and instruction overrides from a
// YAML file keyed by agent name. Unknown agent names are an error so typos
// in the file surface at startup.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read agent overrides: %w", err)
	}

	var overrides map[string]agentOverride
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse agent overrides: %w", err)
	}

	for name, o := range overrides {
		a, ok := r.agents[name]
		if !ok {
			return fmt.Errorf("%w in overrides file: %q", ErrUnknownAgent, name)
		}
		if o.Model != "" {
			a.Model = o.Model
		}
		if o.Instructions != "" {
			a.Instructions = o.Instructions
			a.InstructionsFunc = nil
		}
	}
	return nil
}
