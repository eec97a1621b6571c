// Package config handles configuration loading and management for Vishva.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Vishva.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Server       ServerConfig       `mapstructure:"server"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Tools        ToolsConfig        `mapstructure:"tools"`
	Agents       AgentsConfig       `mapstructure:"agents"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseBedrock routes model calls through AWS Bedrock instead of the
	// Anthropic API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OrchestratorConfig holds scheduling and execution bounds.
type OrchestratorConfig struct {
	// MaxConcurrent caps how many subtasks of one wave run at once.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// MaxRounds caps conversation rounds per subtask.
	MaxRounds int `mapstructure:"max_rounds"`
	// PartialSuccessThreshold is the successful-tool-call count that lets
	// a subtask complete with partial data.
	PartialSuccessThreshold int `mapstructure:"partial_success_threshold"`
	// DebugLog is an optional file path for scheduler debug output.
	DebugLog string `mapstructure:"debug_log"`
}

// ToolsConfig holds built-in tool settings.
type ToolsConfig struct {
	GoogleMapsAPIKey string `mapstructure:"google_maps_api_key"`
	// SearchResults is the default result count for web searches.
	SearchResults int `mapstructure:"search_results"`
	// FetchContent controls whether web searches fetch page bodies.
	FetchContent bool `mapstructure:"fetch_content"`
	// CacheTTL bounds how long search results stay cached.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AgentsConfig holds agent catalog settings.
type AgentsConfig struct {
	// OverridesFile is an optional YAML file retargeting agent models or
	// instructions.
	OverridesFile string `mapstructure:"overrides_file"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (VISHVA_*, ANTHROPIC_API_KEY, GOOGLE_MAPS_API_KEY)
// 2. Project config (.vishva.yaml in current directory or parent)
// 3. User config (~/.config/vishva/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("VISHVA")
	v.AutomaticEnv()

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("tools.google_maps_api_key", "GOOGLE_MAPS_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Tools.GoogleMapsAPIKey = expandEnv(cfg.Tools.GoogleMapsAPIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Tools.GoogleMapsAPIKey = expandEnv(cfg.Tools.GoogleMapsAPIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("orchestrator.max_concurrent", 8)
	v.SetDefault("orchestrator.max_rounds", 5)
	v.SetDefault("orchestrator.partial_success_threshold", 3)

	v.SetDefault("tools.search_results", 5)
	v.SetDefault("tools.fetch_content", true)
	v.SetDefault("tools.cache_ttl", "15m")
}

// getUserConfigDir returns the XDG config directory for Vishva.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vishva")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "vishva")
	}
	return filepath.Join(home, ".config", "vishva")
}

// findProjectConfig searches for .vishva.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".vishva.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowedOrigins: []string{"*"},
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrent:           8,
			MaxRounds:               5,
			PartialSuccessThreshold: 3,
		},
		Tools: ToolsConfig{
			SearchResults: 5,
			FetchContent:  true,
			CacheTTL:      15 * time.Minute,
		},
	}
}
