package agents

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()

	a, err := r.Lookup("Search Agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name != "Search Agent" {
		t.Errorf("unexpected agent %q", a.Name)
	}
	if a.OutputSchema == nil {
		t.Error("built-in agent must declare an output schema")
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("Ghost Agent")
	if !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
	if r.Has("Ghost Agent") {
		t.Error("Has must be false for unknown names")
	}
}

func TestRegistryLookupIsCaseSensitive(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Lookup("search agent"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("lookup must be case-sensitive, got %v", err)
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()

	want := []string{
		"Location Agent",
		"Search Agent",
		"Scheduling Agent",
		"Navigation Agent",
		"Concierge Agent",
	}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d agents, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("names[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestRegistryCatalog(t *testing.T) {
	r := NewRegistry()

	catalog := r.Catalog()
	for _, name := range r.Names() {
		if !strings.Contains(catalog, "- "+name+":") {
			t.Errorf("catalog missing entry for %q", name)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := `
Search Agent:
  model: claude-haiku-4-5
Concierge Agent:
  instructions: Recommend only vegetarian restaurants.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadOverrides(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	search, _ := r.Lookup("Search Agent")
	if search.Model != "claude-haiku-4-5" {
		t.Errorf("model override not applied: %q", search.Model)
	}

	concierge, _ := r.Lookup("Concierge Agent")
	if concierge.SystemPrompt() != "Recommend only vegetarian restaurants." {
		t.Errorf("instructions override not applied: %q", concierge.SystemPrompt())
	}
}

func TestLoadOverridesRejectsUnknownAgent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte("Ghost Agent:\n  model: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadOverrides(path); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}
