package main

import (
	"fmt"

	"omnitask/agent"
	mcpserver "omnitask/mcp-server"

	"github.com/spf13/cobra"
)

var (
	transport string
	addr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the agent as an MCP tool",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, settings, err := loadSettings(interactive)
		if err != nil {
			return err
		}
		s, err := mcpserver.NewServer(agent.NewFactory(settings))
		if err != nil {
			return err
		}
		switch transport {
		case "stdio":
			return s.ServeStdio()
		case "sse":
			return s.ServeSSE(addr)
		default:
			return fmt.Errorf("unsupported transport %q, use stdio or sse", transport)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio, sse)")
	serveCmd.Flags().StringVar(&addr, "addr", ":8000", "listen address for the sse transport")
}
