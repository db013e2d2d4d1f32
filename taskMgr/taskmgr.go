// Package taskMgr models the task file kept by the task-manager subprocess.
// The subprocess owns and mutates the tasks; this package only reads and
// writes the JSON shape.
package taskMgr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TaskFileName is the file the task manager keeps under its DATA_DIR.
const TaskFileName = "tasks.json"

func TaskFilePath(dataDir string) string {
	return filepath.Join(dataDir, TaskFileName)
}

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

type TaskItem struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	Priority     string     `json:"priority,omitempty"`
	Dependencies []string   `json:"dependencies"`
	Details      string     `json:"details,omitempty"`
	TestStrategy string     `json:"test_strategy,omitempty"`
	Subtasks     []TaskItem `json:"subtasks,omitempty"`
}

func (item *TaskItem) formatString(builder *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	builder.WriteString(fmt.Sprintf("%s- [%s] %s: %s", indent, item.Status, item.ID, item.Title))
	if item.Priority != "" {
		builder.WriteString(fmt.Sprintf(" (%s)", item.Priority))
	}
	if len(item.Dependencies) != 0 {
		builder.WriteString(fmt.Sprintf(" depends on %s", strings.Join(item.Dependencies, ", ")))
	}
	builder.WriteByte('\n')
	for i := range item.Subtasks {
		item.Subtasks[i].formatString(builder, depth+1)
	}
}

type TaskCollection struct {
	Tasks []TaskItem `json:"tasks"`
}

// Find returns the task or subtask with the given id.
func (c *TaskCollection) Find(id string) *TaskItem {
	return findTask(c.Tasks, id)
}

func findTask(tasks []TaskItem, id string) *TaskItem {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
		if found := findTask(tasks[i].Subtasks, id); found != nil {
			return found
		}
	}
	return nil
}

func (c *TaskCollection) String() string {
	if len(c.Tasks) == 0 {
		return "NO TASKS\n"
	}
	var builder strings.Builder
	for i := range c.Tasks {
		c.Tasks[i].formatString(&builder, 0)
	}
	return builder.String()
}

func LoadTaskCollection(path string) (*TaskCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c TaskCollection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", path, err)
	}
	return &c, nil
}

// SaveTaskCollection writes indented JSON without HTML escaping.
func SaveTaskCollection(path string, c *TaskCollection) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create task dir: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
