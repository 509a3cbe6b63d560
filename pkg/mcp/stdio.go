package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// StdioConfig describes how to spawn a tool server process and attach to its
// stdio pipes.
type StdioConfig struct {
	Command string
	Args    []string
	Dir     string
	Env     []string

	// Stderr receives the server's standard error stream. Defaults to
	// os.Stderr so server-side log lines stay visible alongside the run.
	Stderr io.Writer

	Options Options
}

// NewStdioClient starts the configured command and binds its stdin/stdout to
// the client transport. The caller must Close the returned client to end the
// session. A failed handshake stops the process before returning.
func NewStdioClient(ctx context.Context, cfg StdioConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("mcp: stdio command is required")
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	if cfg.Stderr != nil {
		cmd.Stderr = cfg.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdout pipe: %w", err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcp: start command: %w", err)
	}

	transport := newStdioTransport(stdin, stdout)
	client, err := NewClient(ctx, transport, cfg.Options)
	if err != nil {
		transport.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	// Close the transport when the process exits so pending reads unblock.
	var once sync.Once
	go func() {
		_ = cmd.Wait()
		once.Do(func() {
			_ = transport.Close()
		})
	}()

	return client, nil
}
