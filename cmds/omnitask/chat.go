package main

import (
	"os"
	"os/signal"

	"omnitask/agent"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive task management chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, settings, err := loadSettings(true)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w := agent.NewWorkflow(agent.NewFactory(settings), os.Stdin, os.Stdout)
		return w.Run(ctx)
	},
}
