package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"omnitask/config"

	"github.com/sashabaranov/go-openai"
)

// ChatModel produces the next assistant message for a conversation.
type ChatModel interface {
	Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

// NewChatModel picks the provider from the model name: claude-* models go
// to Anthropic, everything else to an OpenAI compatible endpoint.
func NewChatModel(settings *config.Settings) (ChatModel, error) {
	if strings.HasPrefix(strings.ToLower(settings.Model), "claude") {
		return NewAnthropicModel(settings)
	}
	return NewOpenAIModel(settings)
}

type openAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIModel(settings *config.Settings) (ChatModel, error) {
	if settings.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("api key %s not set", config.EnvOpenAIAPIKey)
	}
	cfg := openai.DefaultConfig(settings.OpenAIAPIKey)
	if settings.OpenAIAPIBase != "" {
		cfg.BaseURL = settings.OpenAIAPIBase
	}
	return &openAIModel{
		client:      openai.NewClientWithConfig(cfg),
		model:       settings.Model,
		temperature: settings.Temperature,
		maxTokens:   settings.MaxTokens,
	}, nil
}

func (m *openAIModel) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	}
	response, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, err
	}
	if len(response.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("chat completion returned no choices")
	}
	return response.Choices[0].Message, nil
}
