// Package keynote automates Keynote on macOS through osascript. The Service
// tracks the slide geometry and the last drawn rectangle so the text tool can
// target it, and every tool folds failures into an ERROR: result string
// instead of failing the MCP call.
package keynote

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

//go:embed applescript/*.applescript
var scripts embed.FS

// DefaultTimeout bounds a single osascript invocation.
const DefaultTimeout = 15 * time.Second

// ScriptRunner executes one named automation script with positional string
// arguments and returns its trimmed stdout.
type ScriptRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ScriptError reports a failed script invocation. Output carries the
// combined stdout and stderr, where osascript writes its error text.
type ScriptError struct {
	Script string
	Output string
	Err    error
}

func (e *ScriptError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	return fmt.Sprintf("AppleScript failed: %s", e.Script)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// OSARunner feeds embedded AppleScript sources to osascript over stdin.
type OSARunner struct {
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

func (r *OSARunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	source, err := scripts.ReadFile("applescript/" + name + ".applescript")
	if err != nil {
		return "", fmt.Errorf("keynote: unknown script %s: %w", name, err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "osascript", append([]string{"-"}, args...)...)
	cmd.Stdin = bytes.NewReader(source)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &ScriptError{
				Script: name,
				Output: fmt.Sprintf("AppleScript timed out after %s: %s", timeout, name),
				Err:    ctx.Err(),
			}
		}
		return "", &ScriptError{Script: name, Output: strings.TrimSpace(string(output)), Err: err}
	}
	return strings.TrimSpace(string(output)), nil
}
