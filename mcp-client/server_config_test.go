package mcpclient

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"omnitask/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type threadConfig struct {
	ThreadID string
}

type workspace struct{ dir string }

func (w workspace) Path() string { return w.dir }

func installLocal(t *testing.T, root string) string {
	t.Helper()
	entry := LocalEntryPoint(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(entry), 0755))
	require.NoError(t, os.WriteFile(entry, []byte("// server\n"), 0644))
	return entry
}

func TestResolveProjectRoot(t *testing.T) {
	configured := t.TempDir()
	settings := &config.Settings{ProjectRoot: configured}

	t.Run("non path values fall back", func(t *testing.T) {
		for _, root := range []any{
			nil,
			42,
			map[string]any{"configurable": map[string]any{"thread_id": "t-1"}},
			threadConfig{ThreadID: "t-1"},
			&threadConfig{},
			[]string{"/tmp"},
			"",
		} {
			got := ResolveProjectRoot(settings, root)
			assert.Equal(t, configured, got, "root %#v", root)
		}
	})

	t.Run("string bytes and path values are used", func(t *testing.T) {
		dir := t.TempDir()
		assert.Equal(t, dir, ResolveProjectRoot(settings, dir))
		assert.Equal(t, dir, ResolveProjectRoot(settings, []byte(dir)))
		assert.Equal(t, dir, ResolveProjectRoot(settings, workspace{dir: dir}))
	})

	t.Run("relative roots become absolute", func(t *testing.T) {
		got := ResolveProjectRoot(settings, "relative/project")
		assert.True(t, filepath.IsAbs(got))
		assert.True(t, strings.HasSuffix(got, filepath.Join("relative", "project")))
	})

	t.Run("variables are expanded", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("OMNITASK_TEST_ROOT", dir)
		assert.Equal(t, filepath.Join(dir, "sub"), ResolveProjectRoot(settings, "$OMNITASK_TEST_ROOT/sub"))
	})

	t.Run("existing paths with dollar signs are kept", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a$b")
		require.NoError(t, os.MkdirAll(dir, 0755))
		assert.Equal(t, dir, ResolveProjectRoot(settings, dir))
	})

	t.Run("no configured root uses temp dir", func(t *testing.T) {
		got := ResolveProjectRoot(&config.Settings{}, struct{}{})
		assert.Equal(t, filepath.Join(os.TempDir(), "omnitask"), got)
	})
}

func TestResolveServerConfig(t *testing.T) {
	t.Run("local install uses node", func(t *testing.T) {
		root := t.TempDir()
		entry := installLocal(t, root)

		cfg := ResolveServerConfig(&config.Settings{ThoughtChain: true}, root)
		assert.Equal(t, ServerName, cfg.Name)
		assert.Equal(t, "stdio", cfg.Transport)
		assert.Equal(t, "node", cfg.Command)
		assert.Equal(t, []string{entry}, cfg.Args)
		assert.Equal(t, "utf-8", cfg.Encoding)
		assert.Equal(t, "replace", cfg.EncodingErrorHandler)
		assert.Equal(t, root, cfg.ProjectRoot)
	})

	t.Run("local install under configured root", func(t *testing.T) {
		configured := t.TempDir()
		entry := installLocal(t, configured)

		cfg := ResolveServerConfig(&config.Settings{ProjectRoot: configured}, t.TempDir())
		assert.Equal(t, "node", cfg.Command)
		assert.Equal(t, []string{entry}, cfg.Args)
	})

	t.Run("missing install uses npx", func(t *testing.T) {
		cfg := ResolveServerConfig(&config.Settings{}, t.TempDir())
		assert.Equal(t, "npx", cfg.Command)
		assert.Equal(t, []string{"-y", "mcp-shrimp-task-manager"}, cfg.Args)
	})

	t.Run("data dir is absolute and created", func(t *testing.T) {
		configured := t.TempDir()
		for _, root := range []any{t.TempDir(), nil, 3.14} {
			cfg := ResolveServerConfig(&config.Settings{ProjectRoot: configured}, root)
			dataDir := cfg.Env["DATA_DIR"]
			assert.True(t, filepath.IsAbs(dataDir))
			assert.True(t, strings.HasSuffix(dataDir, "/data"), dataDir)
			info, err := os.Stat(dataDir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("PATH", "/usr/local/bin:/usr/bin")
		cfg := ResolveServerConfig(&config.Settings{ThoughtChain: false}, t.TempDir())
		assert.Equal(t, "/usr/local/bin:/usr/bin", cfg.Env["PATH"])
		assert.Equal(t, "false", cfg.Env["ENABLE_THOUGHT_CHAIN"])
		_, ok := cfg.Env["TEMPLATES_USE"]
		assert.False(t, ok)

		cfg = ResolveServerConfig(&config.Settings{ThoughtChain: true, TemplatesUse: "en"}, t.TempDir())
		assert.Equal(t, "true", cfg.Env["ENABLE_THOUGHT_CHAIN"])
		assert.Equal(t, "en", cfg.Env["TEMPLATES_USE"])
	})

	t.Run("command override", func(t *testing.T) {
		t.Setenv("SHRIMP_HOME", "/opt/shrimp")
		settings := &config.Settings{TaskManagerCommand: `node "$SHRIMP_HOME/dist/index.js" --quiet`}
		cfg := ResolveServerConfig(settings, t.TempDir())
		assert.Equal(t, "node", cfg.Command)
		assert.Equal(t, []string{"/opt/shrimp/dist/index.js", "--quiet"}, cfg.Args)
	})

	t.Run("environ is sorted", func(t *testing.T) {
		cfg := ServerConfig{Env: map[string]string{"PATH": "/bin", "DATA_DIR": "/d"}}
		assert.Equal(t, []string{"DATA_DIR=/d", "PATH=/bin"}, cfg.Environ())
	})
}
