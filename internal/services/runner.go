package services

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external binary and returns its combined output.
// Pipeline components accept a runner so tests can substitute fakes.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// DefaultRunner runs commands via os/exec with the supplied context.
func DefaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// LookBinary reports whether the named binary resolves on PATH.
func LookBinary(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: binary name required", ErrConfiguration)
	}
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s not found on PATH", ErrExternalTool, name)
	}
	return nil
}
