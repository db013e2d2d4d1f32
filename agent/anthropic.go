package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"omnitask/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
)

const defaultAnthropicMaxTokens = 4000

type anthropicModel struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewAnthropicModel(settings *config.Settings) (ChatModel, error) {
	if settings.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("api key %s not set", config.EnvAnthropicAPIKey)
	}
	maxTokens := int64(settings.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &anthropicModel{
		client:      anthropic.NewClient(option.WithAPIKey(settings.AnthropicAPIKey)),
		model:       settings.Model,
		temperature: float64(settings.Temperature),
		maxTokens:   maxTokens,
	}, nil
}

func (m *anthropicModel) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	system, sdkMessages := toAnthropicMessages(messages)
	if len(sdkMessages) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("no messages to send")
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.model),
		Messages:    sdkMessages,
		MaxTokens:   m.maxTokens,
		Temperature: anthropic.Float(m.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}
	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("anthropic invocation failed: %w", err)
	}
	return fromAnthropicMessage(message), nil
}

// toAnthropicMessages splits out the system prompt and merges consecutive
// tool results into one user turn, as the Messages API requires.
func toAnthropicMessages(messages []openai.ChatCompletionMessage) (string, []anthropic.MessageParam) {
	var systemPrompts []string
	var sdkMessages []anthropic.MessageParam
	var toolResults []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(toolResults) > 0 {
			sdkMessages = append(sdkMessages, anthropic.NewUserMessage(toolResults...))
			toolResults = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case openai.ChatMessageRoleSystem:
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}
		case openai.ChatMessageRoleTool:
			isError := strings.HasPrefix(msg.Content, "Error: ")
			toolResults = append(toolResults, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, isError))
		case openai.ChatMessageRoleAssistant:
			flush()
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input any = map[string]any{}
				if json.Valid([]byte(tc.Function.Arguments)) {
					input = json.RawMessage(tc.Function.Arguments)
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
			}
			if len(content) > 0 {
				sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(content...))
			}
		default:
			flush()
			sdkMessages = append(sdkMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	flush()
	return strings.Join(systemPrompts, "\n\n"), sdkMessages
}

func toAnthropicTools(tools []openai.Tool) []anthropic.ToolUnionParam {
	res := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		if tool.Function == nil {
			continue
		}
		param := anthropic.ToolParam{
			Name:        tool.Function.Name,
			Description: anthropic.String(tool.Function.Description),
		}
		if data, err := json.Marshal(tool.Function.Parameters); err == nil {
			var inputSchema anthropic.ToolInputSchemaParam
			if err := json.Unmarshal(data, &inputSchema); err == nil {
				param.InputSchema = inputSchema
			}
		}
		res = append(res, anthropic.ToolUnionParam{OfTool: &param})
	}
	return res
}

func fromAnthropicMessage(message *anthropic.Message) openai.ChatCompletionMessage {
	res := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			res.Content += block.Text
		case "tool_use":
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			res.ToolCalls = append(res.ToolCalls, openai.ToolCall{
				ID:   block.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      block.Name,
					Arguments: args,
				},
			})
		}
	}
	return res
}
