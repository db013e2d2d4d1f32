package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"omnitask/service"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoEndpoint(name string) service.ToolEndPoint {
	return service.ToolEndPoint{
		Name: name,
		Def:  openai.FunctionDefinition{Name: name, Description: name + " tool"},
		Handler: func(ctx context.Context, args string) (string, error) {
			return "echo " + args, nil
		},
	}
}

func call(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func TestToolDispatcher_Register(t *testing.T) {
	t.Run("duplicate names are rejected", func(t *testing.T) {
		td := service.NewToolDispatcher()
		require.NoError(t, td.RegisterToolEndpoint(echoEndpoint("list_tasks"), echoEndpoint("plan_task")))
		err := td.RegisterToolEndpoint(echoEndpoint("list_tasks"), echoEndpoint("split_tasks"))
		assert.ErrorContains(t, err, "list_tasks")

		names := []string{}
		for _, endpoint := range td.Endpoints() {
			names = append(names, endpoint.Name)
		}
		assert.Equal(t, []string{"list_tasks", "plan_task", "split_tasks"}, names)
	})

	t.Run("tools are sorted by name", func(t *testing.T) {
		td := service.NewToolDispatcher()
		require.NoError(t, td.RegisterToolEndpoint(echoEndpoint("b"), echoEndpoint("a")))
		tools := td.GetTools()
		require.Len(t, tools, 2)
		assert.Equal(t, "a", tools[0].Function.Name)
		assert.Equal(t, "b", tools[1].Function.Name)
		assert.Equal(t, openai.ToolTypeFunction, tools[0].Type)
	})
}

func TestToolDispatcher_Run(t *testing.T) {
	td := service.NewToolDispatcher()
	failing := service.ToolEndPoint{
		Name: "delete_task",
		Def:  openai.FunctionDefinition{Name: "delete_task"},
		Handler: func(ctx context.Context, args string) (string, error) {
			return "", errors.New("task is done")
		},
	}
	require.NoError(t, td.RegisterToolEndpoint(echoEndpoint("list_tasks"), failing))

	t.Run("success", func(t *testing.T) {
		msg := td.Run(context.Background(), call("c1", "list_tasks", `{"status":"all"}`))
		assert.Equal(t, openai.ChatMessageRoleTool, msg.Role)
		assert.Equal(t, "c1", msg.ToolCallID)
		assert.Equal(t, `echo {"status":"all"}`, msg.Content)
	})

	t.Run("handler error becomes tool content", func(t *testing.T) {
		msg := td.Run(context.Background(), call("c2", "delete_task", `{}`))
		assert.Equal(t, "Error: task is done", msg.Content)
	})

	t.Run("unknown tool", func(t *testing.T) {
		msg := td.Run(context.Background(), call("c3", "missing", `{}`))
		assert.Contains(t, msg.Content, "Can not find tool with name missing")
	})

	t.Run("log records every call", func(t *testing.T) {
		logs := td.GetToolLog()
		require.Len(t, logs, 3)
		assert.Equal(t, 0, logs[0].ID)
		assert.Equal(t, "list_tasks", logs[0].ToolCallName)
		assert.NoError(t, logs[0].ToolCallErr)
		assert.Error(t, logs[1].ToolCallErr)

		data, err := json.Marshal(logs[1])
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":1,"tool_call_id":"c2","name":"delete_task","input":"{}","output":"","error":"task is done"}`, string(data))

		td.ResetLog()
		assert.Empty(t, td.GetToolLog())
	})
}

func TestToolDispatcher_RunLogsWithContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("invocation", "inv-1").Logger()
	ctx := logger.WithContext(context.Background())

	td := service.NewToolDispatcher()
	td.Run(ctx, call("c1", "missing", `{}`))
	assert.Contains(t, buf.String(), `"invocation":"inv-1"`)
	assert.Contains(t, buf.String(), `"tool":"missing"`)
}
