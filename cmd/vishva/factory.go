package main

import (
	"fmt"

	"github.com/vishva-ai/vishva/internal/agents"
	"github.com/vishva-ai/vishva/internal/config"
	"github.com/vishva-ai/vishva/internal/executor"
	"github.com/vishva-ai/vishva/internal/llm"
	"github.com/vishva-ai/vishva/internal/orchestrator"
	"github.com/vishva-ai/vishva/internal/planner"
	"github.com/vishva-ai/vishva/internal/tools"
)

// engine bundles the wired-up orchestration stack.
type engine struct {
	cfg          *config.Config
	llm          *llm.Client
	planner      *planner.Planner
	orchestrator *orchestrator.Orchestrator
}

// buildEngine wires the full stack from configuration: LLM client, tool
// registry, agent catalog, planner, executor, and orchestrator.
func buildEngine(cfg *config.Config) (*engine, error) {
	apiKey := ""
	if !cfg.Anthropic.UseBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		apiKey = key
	}

	client, err := llm.NewClient(llm.ClientConfig{
		Model:         cfg.Anthropic.Model,
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}

	registry := tools.NewRegistry()
	tools.RegisterWebSearch(registry, tools.NewWebSearcher(tools.WebSearcherConfig{
		CacheTTL:     cfg.Tools.CacheTTL,
		Results:      cfg.Tools.SearchResults,
		FetchContent: cfg.Tools.FetchContent,
	}))
	if cfg.Tools.GoogleMapsAPIKey != "" {
		tools.RegisterMapsTools(registry, tools.NewMapsClient(tools.MapsClientConfig{
			APIKey: cfg.Tools.GoogleMapsAPIKey,
		}))
	}

	catalog := agents.NewRegistry()
	if cfg.Agents.OverridesFile != "" {
		if err := catalog.LoadOverrides(cfg.Agents.OverridesFile); err != nil {
			return nil, err
		}
	}

	exec := executor.New(client, registry, catalog)
	if cfg.Orchestrator.MaxRounds > 0 {
		exec.MaxRounds = cfg.Orchestrator.MaxRounds
	}
	if cfg.Orchestrator.PartialSuccessThreshold > 0 {
		exec.PartialThreshold = cfg.Orchestrator.PartialSuccessThreshold
	}

	orch := orchestrator.New(exec)
	if cfg.Orchestrator.MaxConcurrent > 0 {
		orch.MaxConcurrent = cfg.Orchestrator.MaxConcurrent
	}
	if cfg.Orchestrator.DebugLog != "" {
		logger, err := orchestrator.NewDebugLogger(cfg.Orchestrator.DebugLog)
		if err != nil {
			return nil, fmt.Errorf("create debug logger: %w", err)
		}
		orchestrator.SetDebugLogger(logger)
	}

	return &engine{
		cfg:          cfg,
		llm:          client,
		planner:      planner.New(client, catalog),
		orchestrator: orch,
	}, nil
}
