package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	mcpclient "omnitask/mcp-client"
	"omnitask/taskMgr"

	"github.com/spf13/cobra"
)

var taskID string

var tasksCmd = &cobra.Command{
	Use:   "tasks [project-root]",
	Short: "Print the tasks stored for a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, settings, err := loadSettings(false)
		if err != nil {
			return err
		}
		var root any
		if len(args) == 1 {
			root = args[0]
		}
		path := taskMgr.TaskFilePath(filepath.Join(mcpclient.ResolveProjectRoot(settings, root), "data"))
		c, err := taskMgr.LoadTaskCollection(path)
		if errors.Is(err, fs.ErrNotExist) {
			c = &taskMgr.TaskCollection{}
		} else if err != nil {
			return err
		}
		if taskID == "" {
			fmt.Fprint(cmd.OutOrStdout(), c.String())
			return nil
		}
		task := c.Find(taskID)
		if task == nil {
			return fmt.Errorf("task %s not found in %s", taskID, path)
		}
		single := taskMgr.TaskCollection{Tasks: []taskMgr.TaskItem{*task}}
		fmt.Fprint(cmd.OutOrStdout(), single.String())
		if task.Details != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", task.Details)
		}
		return nil
	},
}

func init() {
	tasksCmd.Flags().StringVar(&taskID, "id", "", "show a single task or subtask")
}
