package main

import (
	"os"

	"omnitask/agent"
	"omnitask/config"
	mcpserver "omnitask/mcp-server"
	_ "omnitask/shared"

	"github.com/rs/zerolog/log"
)

// MCP entrypoint. stdio by default, "sse" as the first argument serves SSE.
func main() {
	config.SetupEnvironment()
	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load settings failed")
	}
	s, err := mcpserver.NewServer(agent.NewFactory(settings))
	if err != nil {
		log.Fatal().Err(err).Msg("create server failed")
	}
	if len(os.Args) > 1 && os.Args[1] == "sse" {
		addr := ":8000"
		if len(os.Args) > 2 {
			addr = os.Args[2]
		}
		err = s.ServeSSE(addr)
	} else {
		err = s.ServeStdio()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("run server failed")
	}
}
