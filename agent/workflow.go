package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const Version = "0.1.0"

var commonOperations = []string{
	"Plan task workflow",
	"Show all tasks",
	"Update task content",
	"Execute specific task",
	"Break down complex tasks into subtasks",
}

// Workflow is the interactive chat loop. Every turn acquires a fresh agent
// from the scope and replays the whole history.
type Workflow struct {
	scope    Scope
	in       *bufio.Reader
	out      io.Writer
	history  []openai.ChatCompletionMessage
	hasTools bool
}

func NewWorkflow(scope Scope, in io.Reader, out io.Writer) *Workflow {
	return &Workflow{
		scope: scope,
		in:    bufio.NewReader(in),
		out:   out,
	}
}

// Init probes the scope once. A failure is logged and leaves the workflow in
// limited mode.
func (w *Workflow) Init(ctx context.Context) {
	err := w.scope.With(ctx, nil, func(ctx context.Context, a *Agent) error {
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Error loading agent")
		w.hasTools = false
		return
	}
	w.hasTools = true
}

func (w *Workflow) History() []openai.ChatCompletionMessage {
	return w.history
}

func (w *Workflow) Run(ctx context.Context) error {
	w.Init(ctx)
	w.welcome()
	for {
		fmt.Fprint(w.out, "\nUser: ")
		line, err := w.in.ReadString('\n')
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return err
		}
		line = strings.TrimSpace(line)
		if eof && line == "" {
			fmt.Fprintln(w.out, "\nGoodbye!")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if line == "" {
			continue
		}
		if !w.handle(ctx, line) || eof {
			return nil
		}
	}
}

func (w *Workflow) welcome() {
	fmt.Fprintln(w.out, "\n=== OmniTask Command Line Interface ===")
	fmt.Fprintln(w.out, "Welcome to OmniTask! Type 'exit' to end session, 'help' to see available commands.")
	if !w.hasTools {
		fmt.Fprintln(w.out, "Warning: Failed to load agent, functionality may be limited")
		return
	}
	fmt.Fprintln(w.out, "You can perform the following common operations:")
	for _, op := range commonOperations {
		fmt.Fprintf(w.out, "- %s\n", op)
	}
}

// handle processes one input line and reports whether the loop continues.
func (w *Workflow) handle(ctx context.Context, input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		fmt.Fprintln(w.out, "Goodbye!")
		return false
	case "help":
		w.help(ctx)
		return true
	case "version":
		w.version()
		return true
	}

	if !w.hasTools {
		fmt.Fprintln(w.out, "Assistant: Sorry, I cannot fully process your request due to missing required tools.")
		return true
	}

	w.history = append(w.history, UserMessage(input))
	var output string
	err := w.scope.With(ctx, nil, func(ctx context.Context, a *Agent) error {
		resp, err := a.Invoke(ctx, w.history)
		if err != nil {
			return err
		}
		output = resp.Last().Content
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Processing error")
		fmt.Fprintf(w.out, "Error: %s\n", err)
		return true
	}
	fmt.Fprintf(w.out, "Assistant: %s\n", output)
	w.history = append(w.history, AssistantMessage(output))
	return true
}

func (w *Workflow) help(ctx context.Context) {
	fmt.Fprintln(w.out, "\nAvailable commands:")
	fmt.Fprintln(w.out, "- help: Show this help message")
	fmt.Fprintln(w.out, "- exit/quit: Exit program")
	fmt.Fprintln(w.out, "- version: Show version information")
	if !w.hasTools {
		return
	}
	err := w.scope.With(ctx, nil, func(ctx context.Context, a *Agent) error {
		fmt.Fprintln(w.out, "\nAvailable tools:")
		for _, tool := range a.Tools() {
			desc := tool.Description
			if desc == "" {
				desc = "No description"
			}
			fmt.Fprintf(w.out, "- %s: %s\n", tool.Name, desc)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("list tools failed")
		fmt.Fprintf(w.out, "Error: %s\n", err)
	}
}

func (w *Workflow) version() {
	fmt.Fprintln(w.out, "\nVersion information:")
	fmt.Fprintf(w.out, "OmniTask CLI v%s\n", Version)
	wd, err := os.Getwd()
	if err != nil {
		wd = err.Error()
	}
	fmt.Fprintf(w.out, "Working directory: %s\n", wd)
}
