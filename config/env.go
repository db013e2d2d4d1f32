// Package config resolves the process environment into an explicit Settings
// value. SetupEnvironment keeps the "defaults unless overridden" contract on
// the process environment; Load reads it once so the rest of the program
// never consults os.Getenv directly.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const (
	EnvProjectRoot        = "PROJECT_ROOT"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvAnthropicAPIKey    = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIBase      = "OPENAI_API_BASE"
	EnvTaskAPIURL         = "OMNI_TASK_API_URL"
	EnvModel              = "LLM_MODEL"
	EnvTemperature        = "TEMPERATURE"
	EnvMaxTokens          = "MAX_TOKENS"
	EnvThoughtChain       = "ENABLE_THOUGHT_CHAIN"
	EnvTemplatesUse       = "TEMPLATES_USE"
	EnvTaskManagerCommand = "TASK_MANAGER_COMMAND"
)

const (
	DefaultTaskAPIURL  = "http://localhost:8000"
	DefaultModel       = "gpt-4o"
	DefaultTemperature = "0.2"
	DefaultMaxTokens   = "4000"
)

// Summary reports the values SetupEnvironment resolved.
type Summary struct {
	APIKeySet     bool   `json:"API_KEY_SET"`
	ProjectRoot   string `json:"PROJECT_ROOT"`
	TaskAPIURL    string `json:"OMNI_TASK_API_URL"`
	Model         string `json:"LLM_MODEL"`
	OpenAIAPIBase string `json:"OPENAI_API_BASE"`
}

// SecretReader reads a credential for the named variable.
type SecretReader func(name string) (string, error)

type setupOptions struct {
	interactive bool
	envFiles    []string
	readSecret  SecretReader
}

type Option func(*setupOptions)

// WithInteractive prompts for missing API keys.
func WithInteractive(interactive bool) Option {
	return func(o *setupOptions) { o.interactive = interactive }
}

// WithEnvFiles replaces the default ".env" file list.
func WithEnvFiles(files ...string) Option {
	return func(o *setupOptions) { o.envFiles = files }
}

// WithSecretReader replaces the terminal prompt used in interactive mode.
func WithSecretReader(r SecretReader) Option {
	return func(o *setupOptions) { o.readSecret = r }
}

// SetupEnvironment loads .env files and fills in defaults for every variable
// that is still absent. Credential prompts that fail are logged and skipped.
func SetupEnvironment(opts ...Option) Summary {
	o := setupOptions{
		envFiles:   []string{".env"},
		readSecret: readSecretFromTerminal,
	}
	for _, opt := range opts {
		opt(&o)
	}

	loadEnvFiles(o.envFiles)

	if _, ok := os.LookupEnv(EnvProjectRoot); !ok {
		wd, err := os.Getwd()
		if err != nil {
			log.Warn().Err(err).Msg("get working directory failed")
			wd = os.TempDir()
		}
		os.Setenv(EnvProjectRoot, wd)
	}

	// A key counts as set only when it is non-empty, the same rule as
	// Settings.APIKeySet.
	apiKeySet := false
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		apiKeySet = true
	} else if o.interactive {
		apiKeySet = promptSecret(o.readSecret, EnvOpenAIAPIKey)
	}
	if os.Getenv(EnvAnthropicAPIKey) != "" {
		apiKeySet = true
	} else if !apiKeySet && o.interactive {
		apiKeySet = promptSecret(o.readSecret, EnvAnthropicAPIKey)
	}

	setDefault(EnvTaskAPIURL, DefaultTaskAPIURL)
	setDefault(EnvModel, DefaultModel)
	setDefault(EnvTemperature, DefaultTemperature)
	setDefault(EnvMaxTokens, DefaultMaxTokens)

	apiBase, ok := os.LookupEnv(EnvOpenAIAPIBase)
	if !ok {
		apiBase = "default"
	}
	return Summary{
		APIKeySet:     apiKeySet,
		ProjectRoot:   os.Getenv(EnvProjectRoot),
		TaskAPIURL:    os.Getenv(EnvTaskAPIURL),
		Model:         os.Getenv(EnvModel),
		OpenAIAPIBase: apiBase,
	}
}

func loadEnvFiles(files []string) {
	for _, file := range files {
		err := godotenv.Load(file)
		if err == nil {
			log.Debug().Str("file", file).Msg("load env file")
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("file", file).Msg("load env file failed")
		}
	}
}

func setDefault(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		os.Setenv(key, value)
	}
}

func promptSecret(read SecretReader, name string) bool {
	value, err := read(name)
	if err != nil {
		log.Warn().Err(err).Str("key", name).Msg("credential input cancelled")
		return false
	}
	if value == "" {
		return false
	}
	os.Setenv(name, value)
	return true
}

func readSecretFromTerminal(name string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "%s: ", name)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func parseBool(value string, fallback bool) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
