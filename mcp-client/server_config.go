package mcpclient

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"omnitask/config"

	"github.com/rs/zerolog/log"
	"mvdan.cc/sh/v3/shell"
)

const (
	ServerName  = "shrimp-task-manager"
	PackageName = "mcp-shrimp-task-manager"
)

// ServerConfig describes how to launch and talk to one MCP server.
type ServerConfig struct {
	Name                 string            `json:"-"`
	Transport            string            `json:"transport"`
	Command              string            `json:"command"`
	Args                 []string          `json:"args"`
	Env                  map[string]string `json:"env"`
	Encoding             string            `json:"encoding"`
	EncodingErrorHandler string            `json:"encoding_error_handler"`

	// ProjectRoot is the resolved root the server was configured for.
	ProjectRoot string `json:"-"`
}

// Environ renders Env as KEY=VALUE pairs in key order.
func (c *ServerConfig) Environ() []string {
	keys := make([]string, 0, len(c.Env))
	for key := range c.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	res := make([]string, 0, len(keys))
	for _, key := range keys {
		res = append(res, key+"="+c.Env[key])
	}
	return res
}

// PathValue is implemented by structured values that carry a filesystem path.
type PathValue interface {
	Path() string
}

// LocalEntryPoint is where a project-local install keeps the server script.
func LocalEntryPoint(root string) string {
	return filepath.Join(root, "node_modules", PackageName, "dist", "index.js")
}

// ResolveProjectRoot turns whatever the caller passed into an absolute
// directory. Paths that already exist are used as given; others get shell
// variable expansion. Unusable values fall back to the configured root and then to a
// directory under the system temp dir; it never fails.
func ResolveProjectRoot(settings *config.Settings, projectRoot any) string {
	root := ""
	switch v := projectRoot.(type) {
	case string:
		root = v
	case []byte:
		root = string(v)
	case PathValue:
		root = v.Path()
	}
	if root != "" && !exists(root) {
		expanded, err := shell.Expand(root, os.Getenv)
		if err != nil {
			log.Warn().Err(err).Str("root", root).Msg("expand project root failed, use fallback")
			root = ""
		} else {
			root = expanded
		}
	}
	if root == "" {
		if projectRoot != nil {
			log.Debug().Type("type", projectRoot).Msg("unusable project root, use fallback")
		}
		root = settings.ProjectRoot
	}
	if root == "" {
		root = filepath.Join(os.TempDir(), "omnitask")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return abs
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ResolveServerConfig builds the launch record for the task-manager server.
// The data directory is created when missing.
func ResolveServerConfig(settings *config.Settings, projectRoot any) ServerConfig {
	root := ResolveProjectRoot(settings, projectRoot)

	command, args := resolveCommand(settings, root)

	dataDir := filepath.Join(root, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Warn().Err(err).Str("dir", dataDir).Msg("create data dir failed")
	}

	env := map[string]string{
		"DATA_DIR":             dataDir,
		"PATH":                 os.Getenv("PATH"),
		"ENABLE_THOUGHT_CHAIN": strconv.FormatBool(settings.ThoughtChain),
	}
	if settings.TemplatesUse != "" {
		env["TEMPLATES_USE"] = settings.TemplatesUse
	}

	return ServerConfig{
		Name:                 ServerName,
		Transport:            "stdio",
		Command:              command,
		Args:                 args,
		Env:                  env,
		Encoding:             "utf-8",
		EncodingErrorHandler: "replace",
		ProjectRoot:          root,
	}
}

func resolveCommand(settings *config.Settings, root string) (string, []string) {
	if settings.TaskManagerCommand != "" {
		fields, err := shell.Fields(settings.TaskManagerCommand, os.Getenv)
		if err == nil && len(fields) > 0 {
			log.Info().Strs("argv", fields).Msg("Using configured task manager command")
			return fields[0], fields[1:]
		}
		log.Warn().Err(err).Str("command", settings.TaskManagerCommand).Msg("invalid task manager command, ignored")
	}

	candidates := []string{root}
	if settings.ProjectRoot != "" {
		if abs, err := filepath.Abs(settings.ProjectRoot); err == nil && abs != root {
			candidates = append(candidates, abs)
		}
	}
	for _, candidate := range candidates {
		entry := LocalEntryPoint(candidate)
		if _, err := os.Stat(entry); err == nil {
			log.Info().Str("path", entry).Msg("Using locally installed task manager")
			return "node", []string{entry}
		}
	}
	log.Info().Msg("Using npx to run task manager")
	return "npx", []string{"-y", PackageName}
}
