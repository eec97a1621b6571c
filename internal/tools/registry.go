// Package tools provides the tool registry and the built-in tools agents
// can invoke during subtask execution. The registry is populated once at
// startup and read-only afterwards, so it is safely shared across all
// concurrent executions.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrNotFound indicates a lookup for an unregistered tool name.
var ErrNotFound = errors.New("tool not found")

// InvokeFunc executes a tool with arguments decoded from the model's
// tool-call request. The result is a flat string-keyed map ready to embed
// back into the conversation as a tool-result turn.
type InvokeFunc func(ctx context.Context, args map[string]any) (map[string]string, error)

// Descriptor bundles a tool's invocation function with its statically
// declared argument schema.
type Descriptor struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Invoke      InvokeFunc
}

// Registry maps tool names to descriptors.
type Registry struct {
	tools map[string]*Descriptor
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Registering a duplicate name is a programming
// error and panics, matching the define-once-at-startup contract.
func (r *Registry) Register(d *Descriptor) {
	if _, exists := r.tools[d.Name]; exists {
		panic(fmt.Sprintf("tool %q registered twice", d.Name))
	}
	r.tools[d.Name] = d
	r.order = append(r.order, d.Name)
}

// Lookup returns the descriptor for a model-supplied tool name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return d, nil
}

// Names returns every registered tool name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns the API tool schemas for the named tools, skipping
// names that are not registered.
func (r *Registry) Definitions(names []string) []anthropic.ToolUnionParam {
	var defs []anthropic.ToolUnionParam
	for _, name := range names {
		d, ok := r.tools[name]
		if !ok {
			continue
		}
		defs = append(defs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: d.InputSchema,
			},
		})
	}
	return defs
}

// stringArg extracts a string argument, tolerating absent keys.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an integer argument; JSON numbers decode as float64.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// boolArg extracts a boolean argument.
func boolArg(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}
