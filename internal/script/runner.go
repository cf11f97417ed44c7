// Package script runs the browser and rendering collaborators as isolated
// subprocesses. Each invocation passes a JSON payload as the single argument
// and reads a JSON envelope from stdout, so a crashed or hung browser never
// takes the agent down with it.
package script

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/KevinLopezPastor/qmc-agent/pkg/workflow"
)

// DefaultTimeout bounds a single script invocation.
const DefaultTimeout = 300 * time.Second

// Logger defines the logging interface for the script runner.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// envelope is the common wrapper every script prints on stdout. Script
// specific fields ride alongside it and are decoded by the caller.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Runner invokes worker scripts from a directory with a shared interpreter
// command and timeout.
type Runner struct {
	dir     string
	command string
	timeout time.Duration
	logger  Logger
}

// NewRunner builds a Runner. An empty command defaults to python3 and a zero
// timeout to DefaultTimeout.
func NewRunner(dir, command string, timeout time.Duration, logger Logger) *Runner {
	if command == "" {
		command = "python3"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{dir: dir, command: command, timeout: timeout, logger: logger}
}

// Run executes the named script with payload marshalled as argv[1] and
// decodes stdout into out. A missing script maps to
// workflow.ErrCollaboratorUnavailable so the orchestrator fails the stage
// without retrying.
func (r *Runner) Run(ctx context.Context, name string, payload interface{}, out interface{}) error {
	path := filepath.Join(r.dir, name)
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(workflow.ErrCollaboratorUnavailable, "script %s: %v", name, err)
	}

	arg, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshalling payload for %s", name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.command, path, string(arg))
	cmd.Stderr = os.Stderr
	stdout, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Errorf("script %s timed out after %s", name, r.timeout)
	}
	if err != nil {
		return errors.Wrapf(err, "running script %s", name)
	}

	var env envelope
	if err := json.Unmarshal(stdout, &env); err != nil {
		return errors.Wrapf(err, "decoding output of %s", name)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "script reported failure without detail"
		}
		return errors.Errorf("script %s failed: %s", name, msg)
	}
	if out != nil {
		if err := json.Unmarshal(stdout, out); err != nil {
			return errors.Wrapf(err, "decoding result of %s", name)
		}
	}
	return nil
}
