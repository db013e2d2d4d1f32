package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// processExitGrace is how long a server may take to exit on its own once
// its stdin is closed.
const processExitGrace = 2 * time.Second

// processWaitDelay bounds how long a stopped server may take to exit after
// the interrupt before it is killed.
const processWaitDelay = 5 * time.Second

// inheritedEnv lists the variables a server gets from this process on top of
// its own configuration. Credentials are not passed on.
var inheritedEnv = []string{"HOME", "LOGNAME", "SHELL", "TERM", "USER", "USERPROFILE", "APPDATA", "SYSTEMROOT", "TEMP", "TMPDIR"}

type stdioProcess struct {
	name   string
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// startProcess launches the server and returns an MCP transport over its
// stdio. Server stdout is decoded as UTF-8 with invalid bytes replaced by
// U+FFFD; stderr goes to the log.
func startProcess(cfg ServerConfig) (*stdioProcess, *transport.Stdio, error) {
	if cfg.Transport != "" && cfg.Transport != "stdio" {
		return nil, nil, fmt.Errorf("unsupported transport %q for server %s", cfg.Transport, cfg.Name)
	}
	if cfg.Command == "" {
		return nil, nil, fmt.Errorf("no command configured for server %s", cfg.Name)
	}

	// The process outlives the context of the call that starts it.
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = append(baseEnviron(), cfg.Environ()...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = processWaitDelay
	cmd.Stderr = log.Logger.With().Str("server", cfg.Name).Logger()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	// The read end is not handed to exec, so Wait never closes it under the
	// transport's reader; it is closed once the reader sees EOF.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	err = cmd.Start()
	stdoutW.Close()
	if err != nil {
		stdout.Close()
		cancel()
		return nil, nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}
	log.Debug().Str("server", cfg.Name).Int("pid", cmd.Process.Pid).Msg("server process started")

	tr := transport.NewIO(decodeReader(cfg, &closeOnEOF{f: stdout}), stdin, io.NopCloser(strings.NewReader("")))
	return &stdioProcess{name: cfg.Name, cmd: cmd, cancel: cancel}, tr, nil
}

type closeOnEOF struct {
	f *os.File
}

func (r *closeOnEOF) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if errors.Is(err, io.EOF) {
		r.f.Close()
	}
	return n, err
}

func decodeReader(cfg ServerConfig, r io.Reader) io.Reader {
	if cfg.EncodingErrorHandler == "strict" {
		return r
	}
	return transform.NewReader(r, unicode.UTF8.NewDecoder())
}

func baseEnviron() []string {
	res := []string{}
	for _, key := range inheritedEnv {
		if value, ok := os.LookupEnv(key); ok {
			res = append(res, key+"="+value)
		}
	}
	return res
}

// Close waits for the server to exit on stdin EOF and interrupts it after
// processExitGrace. Exits caused by the stop itself are not errors.
func (p *stdioProcess) Close() error {
	done := make(chan error, 1)
	go func() {
		done <- p.cmd.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(processExitGrace):
		log.Debug().Str("server", p.name).Msg("server still running, interrupt")
		p.cancel()
		err = <-done
	}
	p.cancel()

	var exitErr *exec.ExitError
	if err != nil && (errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay) || errors.Is(err, context.Canceled)) {
		log.Debug().Err(err).Str("server", p.name).Msg("server process stopped")
		return nil
	}
	return err
}
