package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Settings is built once at startup and passed to every component.
type Settings struct {
	ProjectRoot     string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIBase   string
	Model           string
	Temperature     float32
	MaxTokens       int
	TaskAPIURL      string

	// ThoughtChain and TemplatesUse are forwarded to the task manager.
	ThoughtChain bool
	TemplatesUse string

	// TaskManagerCommand replaces the node/npx launch when set.
	TaskManagerCommand string
}

// APIKeySet reports whether a credential for either provider is configured.
func (s *Settings) APIKeySet() bool {
	return s.OpenAIAPIKey != "" || s.AnthropicAPIKey != ""
}

var bindings = map[string]string{
	"project_root":         EnvProjectRoot,
	"openai_api_key":       EnvOpenAIAPIKey,
	"anthropic_api_key":    EnvAnthropicAPIKey,
	"openai_api_base":      EnvOpenAIAPIBase,
	"model":                EnvModel,
	"temperature":          EnvTemperature,
	"max_tokens":           EnvMaxTokens,
	"task_api_url":         EnvTaskAPIURL,
	"thought_chain":        EnvThoughtChain,
	"templates_use":        EnvTemplatesUse,
	"task_manager_command": EnvTaskManagerCommand,
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("model", DefaultModel)
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("max_tokens", DefaultMaxTokens)
	v.SetDefault("task_api_url", DefaultTaskAPIURL)
	v.SetDefault("thought_chain", "true")
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return v, nil
}

// Load reads the process environment. Call SetupEnvironment first to get
// the documented defaults written back to the environment.
func Load() (*Settings, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	temperature, err := strconv.ParseFloat(strings.TrimSpace(v.GetString("temperature")), 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTemperature, err)
	}
	maxTokens, err := strconv.Atoi(strings.TrimSpace(v.GetString("max_tokens")))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvMaxTokens, err)
	}
	if maxTokens < 0 {
		return nil, fmt.Errorf("invalid %s: must not be negative", EnvMaxTokens)
	}

	return &Settings{
		ProjectRoot:        v.GetString("project_root"),
		OpenAIAPIKey:       v.GetString("openai_api_key"),
		AnthropicAPIKey:    v.GetString("anthropic_api_key"),
		OpenAIAPIBase:      v.GetString("openai_api_base"),
		Model:              v.GetString("model"),
		Temperature:        float32(temperature),
		MaxTokens:          maxTokens,
		TaskAPIURL:         v.GetString("task_api_url"),
		ThoughtChain:       parseBool(v.GetString("thought_chain"), true),
		TemplatesUse:       v.GetString("templates_use"),
		TaskManagerCommand: v.GetString("task_manager_command"),
	}, nil
}
