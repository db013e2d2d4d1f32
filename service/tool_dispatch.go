package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

type ToolHandler func(ctx context.Context, args string) (string, error)

type ToolEndPoint struct {
	Name    string
	Def     openai.FunctionDefinition
	Handler ToolHandler
}

// ToolExecLog records one tool call made by the model.
type ToolExecLog struct {
	ID           int    `json:"id"`
	ToolCallID   string `json:"tool_call_id,omitempty"`
	ToolCallName string `json:"name"`
	ToolCallArgs string `json:"input"`
	ToolCallRes  string `json:"output"`
	ToolCallErr  error  `json:"-"`
}

// MarshalJSON adds the error text, which error values cannot carry themselves.
func (toolLog ToolExecLog) MarshalJSON() ([]byte, error) {
	type plain ToolExecLog
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(toolLog)}
	if toolLog.ToolCallErr != nil {
		out.Error = toolLog.ToolCallErr.Error()
	}
	return json.Marshal(out)
}

func (toolLog *ToolExecLog) formatString() string {
	if toolLog.ToolCallErr != nil {
		return fmt.Sprintf("Error: %s", toolLog.ToolCallErr)
	}
	return toolLog.ToolCallRes
}

// ToolDispatcher is owned by a single agent and is not safe for concurrent use.
type ToolDispatcher struct {
	toolMap map[string]ToolEndPoint
	toolLog []*ToolExecLog
}

func NewToolDispatcher() *ToolDispatcher {
	return &ToolDispatcher{
		toolMap: map[string]ToolEndPoint{},
	}
}

func (td *ToolDispatcher) ResetLog() {
	td.toolLog = nil
}

func (td *ToolDispatcher) GetToolLog() []*ToolExecLog {
	return td.toolLog
}

func (td *ToolDispatcher) RegisterToolEndpoint(endpoints ...ToolEndPoint) error {
	err := []error{}
	for _, endpoint := range endpoints {
		_, exist := td.toolMap[endpoint.Name]
		if exist {
			err = append(err, fmt.Errorf("tool with name %s already exist", endpoint.Name))
		} else {
			td.toolMap[endpoint.Name] = endpoint
		}
	}
	return errors.Join(err...)
}

// Run executes a tool call and returns the tool message for the model.
// Unknown tools and handler failures become error text the model can read.
func (td *ToolDispatcher) Run(ctx context.Context, toolCall openai.ToolCall) openai.ChatCompletionMessage {
	endpoint, exist := td.toolMap[toolCall.Function.Name]
	res := openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		ToolCallID: toolCall.ID,
		Name:       toolCall.Function.Name,
	}
	content := ""
	var err error
	if exist {
		content, err = endpoint.Handler(ctx, toolCall.Function.Arguments)
	} else {
		err = fmt.Errorf("Run tool call failed, Can not find tool with name %s", toolCall.Function.Name)
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tool", toolCall.Function.Name).Msg("tool call failed")
	}
	execLog := ToolExecLog{
		ID:           len(td.toolLog),
		ToolCallID:   toolCall.ID,
		ToolCallName: toolCall.Function.Name,
		ToolCallArgs: toolCall.Function.Arguments,
		ToolCallRes:  content,
		ToolCallErr:  err,
	}
	td.toolLog = append(td.toolLog, &execLog)
	res.Content = execLog.formatString()
	return res
}

// Endpoints returns the registered endpoints sorted by name.
func (td *ToolDispatcher) Endpoints() []ToolEndPoint {
	res := make([]ToolEndPoint, 0, len(td.toolMap))
	for _, endpoint := range td.toolMap {
		res = append(res, endpoint)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res
}

func (td *ToolDispatcher) GetTools() []openai.Tool {
	endpoints := td.Endpoints()
	res := make([]openai.Tool, 0, len(endpoints))
	for i := range endpoints {
		def := endpoints[i].Def
		res = append(res, openai.Tool{
			Type:     openai.ToolTypeFunction,
			Function: &def,
		})
	}
	return res
}
