package convert

import (
	"context"
	"os/exec"
)

// Executor abstracts command execution for testability.
type Executor interface {
	// Run executes the binary and returns its combined output.
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.CombinedOutput()
}
