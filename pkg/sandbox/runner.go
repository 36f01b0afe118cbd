// Package sandbox is the boundary to the code-execution environment
// that runs user-authored tool bodies. The dispatch core treats a
// Runner like any other executor; isolation guarantees live behind
// this interface.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

// Runner executes user-defined tool code with the tool's arguments and
// declared permissions, normalizing the outcome into an
// ExecutionResult.
type Runner interface {
	RunCode(ctx context.Context, code string, args map[string]interface{}, permissions []string) (registry.ExecutionResult, error)
}

// HostRunner runs tool code through a host interpreter process. The
// code is written to a temp file, arguments arrive as JSON on stdin,
// and granted permissions are exposed via TOOL_PERMISSIONS.
type HostRunner struct {
	Interpreter string
	Args        []string
	Timeout     time.Duration
}

// NewHostRunner creates a runner for the given interpreter command.
func NewHostRunner(interpreter string, args []string, timeout time.Duration) *HostRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HostRunner{
		Interpreter: interpreter,
		Args:        args,
		Timeout:     timeout,
	}
}

// RunCode implements Runner.
func (r *HostRunner) RunCode(ctx context.Context, code string, args map[string]interface{}, permissions []string) (registry.ExecutionResult, error) {
	if r.Interpreter == "" {
		return registry.ExecutionResult{}, ErrNoInterpreter
	}

	dir, err := os.MkdirTemp("", "dispatch-tool-*")
	if err != nil {
		return registry.ExecutionResult{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	codePath := filepath.Join(dir, "tool_code")
	if err := os.WriteFile(codePath, []byte(code), 0600); err != nil {
		return registry.ExecutionResult{}, fmt.Errorf("failed to write tool code: %w", err)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	stdin, err := json.Marshal(args)
	if err != nil {
		return registry.ExecutionResult{}, fmt.Errorf("failed to encode arguments: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmdArgs := append(append([]string{}, r.Args...), codePath)
	cmd := exec.CommandContext(execCtx, r.Interpreter, cmdArgs...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = append(os.Environ(),
		"TOOL_PERMISSIONS="+strings.Join(permissions, ","),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	log.Debug().
		Str("interpreter", r.Interpreter).
		Dur("duration", duration).
		Bool("success", err == nil).
		Msg("Sandboxed tool run finished")

	if execCtx.Err() == context.DeadlineExceeded {
		return registry.ExecutionResult{}, fmt.Errorf("%w after %v", ErrExecutionTimeout, r.Timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return registry.Err(registry.CodeExecution, msg), nil
	}

	return registry.OkWithMetadata(stdout.String(), map[string]interface{}{
		"duration_ms": duration.Milliseconds(),
	}), nil
}
