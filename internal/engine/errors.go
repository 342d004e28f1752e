package engine

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// diagnosticTailLines bounds how much captured ffmpeg output an EngineError
// carries.
const diagnosticTailLines = 50

// EngineError reports a non-zero exit from the external transcode engine.
// Engine failures are always fatal and never retried.
type EngineError struct {
	Op             string
	ExitCode       int
	DiagnosticTail string
	Err            error
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s failed (exit code %d)", e.Op, e.ExitCode)
	if e.DiagnosticTail != "" {
		msg += ":\n" + e.DiagnosticTail
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Err }

// ProbeError reports an unreadable or undecodable media file.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

func newEngineError(op string, err error, stderr []byte) *EngineError {
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &EngineError{
		Op:             op,
		ExitCode:       exitCode,
		DiagnosticTail: tailLines(string(stderr), diagnosticTailLines),
		Err:            err,
	}
}

func tailLines(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
