package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vishva-ai/vishva/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display current configuration",
	Long: `Display the resolved configuration.

Configuration is stored at ~/.config/vishva/config.yaml
Project-specific overrides can be placed in .vishva.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayConfig(cfg)
	},
}

func displayConfig(cfg *config.Config) {
	key, _ := config.GetAPIKey(cfg)

	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(key))
	fmt.Printf("anthropic.model: %s\n", orDefault(cfg.Anthropic.Model, "(sdk default)"))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	if cfg.Anthropic.UseBedrock {
		fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
		fmt.Printf("anthropic.aws_profile: %s\n", cfg.Anthropic.AWSProfile)
	}
	fmt.Printf("server.host: %s\n", cfg.Server.Host)
	fmt.Printf("server.port: %d\n", cfg.Server.Port)
	fmt.Printf("server.allowed_origins: %v\n", cfg.Server.AllowedOrigins)
	fmt.Printf("orchestrator.max_concurrent: %d\n", cfg.Orchestrator.MaxConcurrent)
	fmt.Printf("orchestrator.max_rounds: %d\n", cfg.Orchestrator.MaxRounds)
	fmt.Printf("orchestrator.partial_success_threshold: %d\n", cfg.Orchestrator.PartialSuccessThreshold)
	fmt.Printf("orchestrator.debug_log: %s\n", orDefault(cfg.Orchestrator.DebugLog, "(disabled)"))
	fmt.Printf("tools.google_maps_api_key: %s\n", config.MaskAPIKey(cfg.Tools.GoogleMapsAPIKey))
	fmt.Printf("tools.search_results: %d\n", cfg.Tools.SearchResults)
	fmt.Printf("tools.fetch_content: %t\n", cfg.Tools.FetchContent)
	fmt.Printf("tools.cache_ttl: %s\n", cfg.Tools.CacheTTL)
	fmt.Printf("agents.overrides_file: %s\n", orDefault(cfg.Agents.OverridesFile, "(none)"))
	fmt.Printf("\nconfig file: %s\n", config.GetUserConfigPath())
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
