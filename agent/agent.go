package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"omnitask/service"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const DefaultMaxSteps = 25

var ErrStepLimit = errors.New("agent reached step limit without a final answer")

// Agent is a tool calling loop over a chat model. It is not safe for
// concurrent use.
type Agent struct {
	model        ChatModel
	prompt       PromptTemplate
	toolDispatch *service.ToolDispatcher
	maxSteps     int
}

func NewAgent(model ChatModel, prompt PromptTemplate, endpoints []service.ToolEndPoint) (*Agent, error) {
	if model == nil {
		return nil, errors.New("chat model is nil")
	}
	agent := &Agent{
		model:        model,
		prompt:       prompt,
		toolDispatch: service.NewToolDispatcher(),
		maxSteps:     DefaultMaxSteps,
	}
	if err := agent.toolDispatch.RegisterToolEndpoint(endpoints...); err != nil {
		return nil, err
	}
	return agent, nil
}

// Tools lists the definitions of the tools the model can call, sorted by name.
func (a *Agent) Tools() []openai.FunctionDefinition {
	endpoints := a.toolDispatch.Endpoints()
	res := make([]openai.FunctionDefinition, 0, len(endpoints))
	for _, endpoint := range endpoints {
		res = append(res, endpoint.Def)
	}
	return res
}

// Response is the conversation after an invocation, input messages included.
type Response struct {
	Messages []openai.ChatCompletionMessage `json:"messages"`
	Tools    []*service.ToolExecLog         `json:"tool_calls,omitempty"`
}

// Last returns the final message, normally the model's answer.
func (r *Response) Last() openai.ChatCompletionMessage {
	if r == nil || len(r.Messages) == 0 {
		return openai.ChatCompletionMessage{}
	}
	return r.Messages[len(r.Messages)-1]
}

func (r *Response) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%v", r.Messages)
	}
	return string(data)
}

func (a *Agent) Invoke(ctx context.Context, messages []openai.ChatCompletionMessage) (*Response, error) {
	a.toolDispatch.ResetLog()
	history := append([]openai.ChatCompletionMessage{}, messages...)
	tools := a.toolDispatch.GetTools()

	for step := 0; step < a.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := a.model.Chat(ctx, a.prompt.Format(history), tools)
		if err != nil {
			return nil, err
		}
		if msg.Role == "" {
			msg.Role = openai.ChatMessageRoleAssistant
		}
		history = append(history, msg)
		if len(msg.ToolCalls) == 0 {
			return &Response{Messages: history, Tools: a.toolDispatch.GetToolLog()}, nil
		}
		for _, call := range msg.ToolCalls {
			log.Ctx(ctx).Debug().Str("tool", call.Function.Name).Str("args", call.Function.Arguments).Int("step", step).Msg("agent tool call")
			history = append(history, a.toolDispatch.Run(ctx, call))
		}
	}
	return nil, fmt.Errorf("%w (%d steps)", ErrStepLimit, a.maxSteps)
}
