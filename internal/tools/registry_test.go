package tools

import (
	"context"
	"errors"
	"testing"
)

func testDescriptor(name string) *Descriptor {
	return &Descriptor{
		Name:        name,
		Description: "test tool",
		Invoke: func(ctx context.Context, args map[string]any) (map[string]string, error) {
			return map[string]string{"ok": "true"}, nil
		},
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(testDescriptor("web_search"))

	d, err := r.Lookup("web_search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "web_search" {
		t.Errorf("expected web_search, got %q", d.Name)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(testDescriptor("web_search"))

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register(testDescriptor("web_search"))
}

func TestRegistryDefinitionsSkipsUnknown(t *testing.T) {
	r := NewRegistry()
	r.Register(testDescriptor("web_search"))
	r.Register(testDescriptor("get_directions"))

	defs := r.Definitions([]string{"web_search", "missing", "get_directions"})
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].OfTool.Name != "web_search" || defs[1].OfTool.Name != "get_directions" {
		t.Error("definitions out of order")
	}
}

func TestRegistryNamesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(testDescriptor("a"))
	r.Register(testDescriptor("b"))

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected registration order [a b], got %v", names)
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"query":         "theaters near me",
		"num_results":   float64(3), // JSON numbers decode as float64
		"fetch_content": false,
	}

	if got := stringArg(args, "query"); got != "theaters near me" {
		t.Errorf("stringArg: got %q", got)
	}
	if got := intArg(args, "num_results", 5); got != 3 {
		t.Errorf("intArg: got %d", got)
	}
	if got := intArg(args, "missing", 5); got != 5 {
		t.Errorf("intArg fallback: got %d", got)
	}
	if got := boolArg(args, "fetch_content", true); got {
		t.Error("boolArg: expected false")
	}
}
