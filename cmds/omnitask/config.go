package main

import (
	"encoding/json"
	"fmt"
	"os"

	"omnitask/agent"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _, err := loadSettings(interactive)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "OmniTask CLI v%s\n", agent.Version)
		if wd, err := os.Getwd(); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Working directory: %s\n", wd)
		}
	},
}
