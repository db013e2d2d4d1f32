package agent

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"omnitask/config"
	mcpclient "omnitask/mcp-client"
	"omnitask/service"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToolSource struct {
	endpoints []service.ToolEndPoint
	loadErr   error
	closeErr  error
	closed    int
}

func (s *fakeToolSource) LoadAllTools(ctx context.Context) ([]service.ToolEndPoint, error) {
	return s.endpoints, s.loadErr
}

func (s *fakeToolSource) Close() error {
	s.closed++
	return s.closeErr
}

type factoryFixture struct {
	source  *fakeToolSource
	model   *scriptedModel
	configs []mcpclient.ServerConfig
}

func newFixture(t *testing.T, opts ...FactoryOption) (*Factory, *factoryFixture) {
	t.Helper()
	calls := 0
	fx := &factoryFixture{
		source: &fakeToolSource{endpoints: []service.ToolEndPoint{listTasksEndpoint(&calls)}},
		model:  &scriptedModel{replies: []openai.ChatCompletionMessage{AssistantMessage("ok")}},
	}
	base := []FactoryOption{
		WithToolSource(func(ctx context.Context, cfg mcpclient.ServerConfig) (ToolSource, error) {
			fx.configs = append(fx.configs, cfg)
			return fx.source, nil
		}),
		WithChatModel(func(settings *config.Settings) (ChatModel, error) {
			return fx.model, nil
		}),
	}
	settings := &config.Settings{ProjectRoot: t.TempDir()}
	return NewFactory(settings, append(base, opts...)...), fx
}

func TestFactory_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("builds agent for project root", func(t *testing.T) {
		f, fx := newFixture(t)
		root := t.TempDir()
		session, err := f.Acquire(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, root, session.Root)
		require.Len(t, session.Agent.Tools(), 1)
		assert.Equal(t, "list_tasks", session.Agent.Tools()[0].Name)

		require.Len(t, fx.configs, 1)
		assert.Equal(t, filepath.Join(root, "data"), fx.configs[0].Env["DATA_DIR"])

		require.NoError(t, session.Close())
		require.NoError(t, session.Close())
		assert.Equal(t, 1, fx.source.closed)
	})

	t.Run("non path root falls back to settings", func(t *testing.T) {
		f, _ := newFixture(t)
		session, err := f.Acquire(ctx, map[string]any{"thread_id": "t-1"})
		require.NoError(t, err)
		defer session.Close()
		assert.Equal(t, f.settings.ProjectRoot, session.Root)
	})

	t.Run("start failure", func(t *testing.T) {
		boom := errors.New("spawn failed")
		f, _ := newFixture(t, WithToolSource(func(ctx context.Context, cfg mcpclient.ServerConfig) (ToolSource, error) {
			return nil, boom
		}))
		_, err := f.Acquire(ctx, nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("load failure releases the source", func(t *testing.T) {
		f, fx := newFixture(t)
		fx.source.loadErr = errors.New("list tools failed")
		_, err := f.Acquire(ctx, nil)
		assert.ErrorContains(t, err, "list tools failed")
		assert.Equal(t, 1, fx.source.closed)
	})

	t.Run("model failure releases the source", func(t *testing.T) {
		f, fx := newFixture(t, WithChatModel(func(settings *config.Settings) (ChatModel, error) {
			return nil, errors.New("api key OPENAI_API_KEY not set")
		}))
		_, err := f.Acquire(ctx, nil)
		assert.ErrorContains(t, err, "OPENAI_API_KEY")
		assert.Equal(t, 1, fx.source.closed)
	})
}

func TestFactory_With(t *testing.T) {
	ctx := context.Background()

	t.Run("releases after body", func(t *testing.T) {
		f, fx := newFixture(t)
		var answer string
		err := f.With(ctx, nil, func(ctx context.Context, a *Agent) error {
			resp, err := a.Invoke(ctx, []openai.ChatCompletionMessage{UserMessage("hi")})
			if err != nil {
				return err
			}
			answer = resp.Last().Content
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", answer)
		assert.Equal(t, 1, fx.source.closed)
	})

	t.Run("body error wins and release still happens", func(t *testing.T) {
		f, fx := newFixture(t)
		boom := errors.New("invoke failed")
		fx.source.closeErr = errors.New("close failed")
		err := f.With(ctx, nil, func(ctx context.Context, a *Agent) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "close failed")
		assert.Equal(t, 1, fx.source.closed)
	})

	t.Run("each call acquires a new session", func(t *testing.T) {
		f, fx := newFixture(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, f.With(ctx, nil, func(ctx context.Context, a *Agent) error { return nil }))
		}
		assert.Len(t, fx.configs, 3)
		assert.Equal(t, 3, fx.source.closed)
	})
}

func TestFactory_WithUsesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("invocation", "inv-7").Logger()
	ctx := logger.WithContext(context.Background())

	calls := 0
	f, fx := newFixture(t)
	fx.model.replies = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleAssistant, ToolCalls: []openai.ToolCall{{
			ID: "c1", Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: "list_tasks", Arguments: `{}`},
		}}},
		AssistantMessage("done"),
	}
	fx.source.endpoints = []service.ToolEndPoint{listTasksEndpoint(&calls)}
	fx.source.closeErr = errors.New("close failed")

	err := f.With(ctx, nil, func(ctx context.Context, a *Agent) error {
		_, err := a.Invoke(ctx, []openai.ChatCompletionMessage{UserMessage("show")})
		return err
	})
	assert.ErrorContains(t, err, "close failed")

	out := strings.TrimSpace(buf.String())
	for _, line := range strings.Split(out, "\n") {
		assert.Contains(t, line, `"invocation":"inv-7"`)
	}
	assert.Contains(t, out, "starting task manager")
	assert.Contains(t, out, "agent tool call")
	assert.Contains(t, out, "release agent failed")
}
