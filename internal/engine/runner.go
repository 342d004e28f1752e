package engine

import (
	"bytes"
	"context"
	"os/exec"
)

// RunResult captures the output of an external command.
type RunResult struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes external commands. The pipeline injects a fake in tests.
type Runner interface {
	Run(ctx context.Context, command string, args []string) (RunResult, error)
}

// CmdRunner runs commands via os/exec, capturing both streams for
// diagnostics.
type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	return RunResult{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}, err
}

var _ Runner = CmdRunner{}
