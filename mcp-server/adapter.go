package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"omnitask/agent"
	"omnitask/shared"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Prompter is implemented by tool inputs. Inputs that also have a
// ProjectRootValue() any method choose the project the agent works on.
type Prompter interface {
	PromptText() string
}

type projectRooter interface {
	ProjectRootValue() any
}

// AgentTool exposes an agent scope as a single MCP tool whose arguments are
// described by T.
type AgentTool[T Prompter] struct {
	name     string
	scope    agent.Scope
	params   []Param
	schema   json.RawMessage
	compiled *jsonschema.Schema
	tool     mcp.Tool
}

func NewAgentTool[T Prompter](scope agent.Scope, name, description string) (*AgentTool[T], error) {
	if scope == nil {
		return nil, fmt.Errorf("tool %s: scope is nil", name)
	}
	var zero T
	schema, params, err := reflectSchema(&zero)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	tool, err := shared.ConvertToMcpTool(openai.FunctionDefinition{
		Name:        name,
		Description: description,
		Parameters:  schema,
	})
	if err != nil {
		return nil, err
	}
	return &AgentTool[T]{
		name:     name,
		scope:    scope,
		params:   params,
		schema:   schema,
		compiled: compiled,
		tool:     tool,
	}, nil
}

func (t *AgentTool[T]) Name() string {
	return t.name
}

// Params lists the tool arguments in the field order of T.
func (t *AgentTool[T]) Params() []Param {
	return append([]Param(nil), t.params...)
}

func (t *AgentTool[T]) Schema() json.RawMessage {
	return t.schema
}

func (t *AgentTool[T]) Tool() mcp.Tool {
	return t.tool
}

// Run validates and decodes raw, then invokes a freshly acquired agent with
// the prompt as the only user message. Invalid input fails before anything
// is acquired.
func (t *AgentTool[T]) Run(ctx context.Context, raw json.RawMessage) (*agent.Response, error) {
	raw = normalizeArgs(raw)
	if err := validateArgs(t.compiled, raw); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", t.name, err)
	}
	var input T
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decode arguments for %s: %w", t.name, err)
	}

	var projectRoot any
	if r, ok := any(input).(projectRooter); ok {
		projectRoot = r.ProjectRootValue()
	}

	var resp *agent.Response
	err := t.scope.With(ctx, projectRoot, func(ctx context.Context, a *agent.Agent) error {
		var err error
		resp, err = a.Invoke(ctx, []openai.ChatCompletionMessage{agent.UserMessage(input.PromptText())})
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *AgentTool[T]) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := log.With().Str("tool", t.name).Str("invocation", uuid.NewString()).Logger()

	raw, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return nil, fmt.Errorf("encode arguments for %s: %w", t.name, err)
	}
	logger.Info().RawJSON("args", normalizeArgs(raw)).Msg("agent tool called")

	resp, err := t.Run(logger.WithContext(ctx), raw)
	if err != nil {
		logger.Error().Err(err).Msg("agent tool failed")
		return nil, err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("messages", len(resp.Messages)).Msg("agent tool finished")
	return mcp.NewToolResultText(string(data)), nil
}
