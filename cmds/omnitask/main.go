package main

import (
	"fmt"
	"os"

	"omnitask/agent"
	"omnitask/config"
	"omnitask/shared"

	"github.com/spf13/cobra"
)

var (
	envFiles    []string
	logLevel    string
	interactive bool
)

var rootCmd = &cobra.Command{
	Use:     "omnitask",
	Short:   "OmniTask - task management agent backed by an MCP task manager",
	Version: agent.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			shared.SetLogLevel(logLevel)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&interactive, "interactive", false, "Prompt for missing API keys")

	rootCmd.AddCommand(chatCmd, serveCmd, configCmd, tasksCmd, versionCmd)
}

// loadSettings prepares the process environment and reads it once.
func loadSettings(prompt bool) (config.Summary, *config.Settings, error) {
	summary := config.SetupEnvironment(
		config.WithEnvFiles(envFiles...),
		config.WithInteractive(prompt),
	)
	settings, err := config.Load()
	if err != nil {
		return summary, nil, err
	}
	return summary, settings, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
