package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// The console writer goes to stderr: stdout carries the MCP stdio transport
// for both the served tool and the task-manager subprocess.
func init() {
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		FormatCaller: func(i interface{}) string {
			path, _ := i.(string)
			relPath, err := filepath.Rel(wd, path)
			if err != nil || wd == "" {
				relPath = path
			}
			return fmt.Sprintf("[%s]", relPath)
		},
		NoColor: false,
	}
	log.Logger = zerolog.New(consoleWriter).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Caller().
		Logger()
	// log.Ctx falls back to the global logger for contexts without one.
	zerolog.DefaultContextLogger = &log.Logger
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		SetLogLevel(level)
	}
}

// SetLogLevel changes the global log level. Unknown names keep the current level.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keep current")
		return
	}
	log.Logger = log.Logger.Level(lvl)
}
