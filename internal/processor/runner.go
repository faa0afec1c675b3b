package processor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes an external program to completion and returns its stdout.
// A non-zero exit is returned as an error that includes the tail of stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec and logs their stderr.
type ExecRunner struct {
	logger *zap.Logger
	env    []string
}

// NewExecRunner creates a runner that inherits the process environment plus env.
func NewExecRunner(logger *zap.Logger, env ...string) *ExecRunner {
	return &ExecRunner{logger: logger, env: env}
}

// Run starts name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running external command",
		zap.String("command", name),
		zap.Strings("args", redactArgs(args)))

	err := cmd.Run()
	r.logStderr(name, stderr.String())
	if err != nil {
		if tail := lastLines(stderr.String(), 5); tail != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, tail)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// logStderr logs tool diagnostics, raising lines that look like errors to warnings.
func (r *ExecRunner) logStderr(name, output string) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if containsToolError(line) {
			r.logger.Warn("external command stderr", zap.String("command", name), zap.String("output", line))
		} else {
			r.logger.Debug("external command stderr", zap.String("command", name), zap.String("output", line))
		}
	}
}

// containsToolError checks if stderr output contains actual errors vs info
func containsToolError(output string) bool {
	errorIndicators := []string{
		"Error opening",
		"Invalid data",
		"No such file",
		"Permission denied",
		"Traceback",
		"Error:",
	}
	for _, indicator := range errorIndicators {
		if strings.Contains(output, indicator) {
			return true
		}
	}
	return false
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// secretFlags take a credential as their value.
var secretFlags = map[string]bool{"--hf_token": true}

// redactArgs masks credential values so argument lists can be logged.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i+1 < len(out); i++ {
		if secretFlags[out[i]] {
			out[i+1] = "***"
		}
	}
	return out
}
