package mcpserver

import (
	"omnitask/agent"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

const (
	ServerName = "OmniTask Agent MCP Server"
	ToolName   = "OmniTask_Agent"

	ToolDescription = "A powerful multi-model task management system that can both integrate with various task management systems and help users choose and use the most suitable task management solution"
)

type Server struct {
	mcp  *server.MCPServer
	tool *AgentTool[InputSchema]
}

func NewServer(scope agent.Scope) (*Server, error) {
	tool, err := NewAgentTool[InputSchema](scope, ToolName, ToolDescription)
	if err != nil {
		return nil, err
	}
	s := server.NewMCPServer(ServerName, agent.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTool(tool.Tool(), tool.Handle)
	return &Server{mcp: s, tool: tool}, nil
}

func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) Tool() *AgentTool[InputSchema] {
	return s.tool
}

func (s *Server) ServeStdio() error {
	log.Info().Str("server", ServerName).Msg("serving mcp over stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) ServeSSE(addr string) error {
	log.Info().Str("server", ServerName).Str("addr", addr).Msg("serving mcp over sse")
	return server.NewSSEServer(s.mcp).Start(addr)
}
