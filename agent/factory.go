package agent

import (
	"context"
	"errors"
	"fmt"

	"omnitask/config"
	mcpclient "omnitask/mcp-client"
	"omnitask/service"

	"github.com/rs/zerolog/log"
)

// ToolSource is a running set of MCP servers whose tools an agent can use.
type ToolSource interface {
	LoadAllTools(ctx context.Context) ([]service.ToolEndPoint, error)
	Close() error
}

type ToolSourceFunc func(ctx context.Context, cfg mcpclient.ServerConfig) (ToolSource, error)

type ChatModelFunc func(settings *config.Settings) (ChatModel, error)

// Scope hands out an agent bound to a project root for the duration of body.
type Scope interface {
	With(ctx context.Context, projectRoot any, body func(ctx context.Context, a *Agent) error) error
}

type Factory struct {
	settings *config.Settings
	newTools ToolSourceFunc
	newModel ChatModelFunc
	prompt   PromptTemplate
}

type FactoryOption func(*Factory)

func WithToolSource(fn ToolSourceFunc) FactoryOption {
	return func(f *Factory) { f.newTools = fn }
}

func WithChatModel(fn ChatModelFunc) FactoryOption {
	return func(f *Factory) { f.newModel = fn }
}

func WithPrompt(prompt PromptTemplate) FactoryOption {
	return func(f *Factory) { f.prompt = prompt }
}

func NewFactory(settings *config.Settings, opts ...FactoryOption) *Factory {
	if settings == nil {
		settings = &config.Settings{}
	}
	f := &Factory{
		settings: settings,
		newTools: startClientMgr,
		newModel: NewChatModel,
		prompt:   DefaultPrompt(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func startClientMgr(ctx context.Context, cfg mcpclient.ServerConfig) (ToolSource, error) {
	mgr := mcpclient.NewclientMgr()
	if err := mgr.NewMCPClient(ctx, cfg); err != nil {
		return nil, err
	}
	return mgr, nil
}

// Session is one acquired agent and the task manager process behind it.
type Session struct {
	Agent  *Agent
	Root   string
	source ToolSource
}

func (s *Session) Close() error {
	if s == nil || s.source == nil {
		return nil
	}
	source := s.source
	s.source = nil
	return source.Close()
}

// Acquire starts a task manager for projectRoot and builds an agent over its
// tools. The caller must Close the session.
func (f *Factory) Acquire(ctx context.Context, projectRoot any) (*Session, error) {
	logger := log.Ctx(ctx)
	cfg := mcpclient.ResolveServerConfig(f.settings, projectRoot)
	logger.Debug().Str("command", cfg.Command).Strs("args", cfg.Args).Str("root", cfg.ProjectRoot).Msg("starting task manager")

	source, err := f.newTools(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Name, err)
	}
	session, err := f.build(ctx, source)
	if err != nil {
		if closeErr := source.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("release task manager failed")
		}
		return nil, err
	}
	session.Root = cfg.ProjectRoot
	return session, nil
}

func (f *Factory) build(ctx context.Context, source ToolSource) (*Session, error) {
	endpoints, err := source.LoadAllTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}
	model, err := f.newModel(f.settings)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	agent, err := NewAgent(model, f.prompt, endpoints)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Int("tools", len(endpoints)).Msg("agent ready")
	return &Session{Agent: agent, source: source}, nil
}

// With acquires an agent, runs body and always releases it. The body error
// takes precedence and a release error is joined to it.
func (f *Factory) With(ctx context.Context, projectRoot any, body func(ctx context.Context, a *Agent) error) error {
	session, err := f.Acquire(ctx, projectRoot)
	if err != nil {
		return err
	}
	bodyErr := body(ctx, session.Agent)
	closeErr := session.Close()
	if closeErr != nil {
		log.Ctx(ctx).Warn().Err(closeErr).Msg("release agent failed")
	}
	return errors.Join(bodyErr, closeErr)
}
