package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes the recognition tools (pdftoppm, pdftotext, tesseract).
// Tests replace it with a stub.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// waitDelay bounds how long a cancelled tool may keep its pipes open.
const waitDelay = 2 * time.Second

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{"tool", name, "args", len(args), "elapsed_ms", time.Since(start).Milliseconds()}
	if err != nil {
		logger.Debug("ocr.tool.failed", append(attrs, "error", err, "reason", stderrReason(stderr.Bytes()))...)
		return stdout.Bytes(), stderr.Bytes(), err
	}
	logger.Debug("ocr.tool.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	return stdout.Bytes(), stderr.Bytes(), nil
}

// ToolError is a failed run of an external recognition tool.
type ToolError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Reason)
}

func (e *ToolError) Unwrap() error { return e.Err }

func toolError(tool string, err error, stderr []byte) *ToolError {
	return &ToolError{Tool: tool, Reason: stderrReason(stderr), Err: err}
}

const maxReason = 512

// stderrReason keeps the last non-empty stderr line; the tools print the
// cause there after any progress output.
func stderrReason(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	reason := strings.TrimSpace(lines[len(lines)-1])
	if len(reason) > maxReason {
		reason = reason[:maxReason] + "..."
	}
	return reason
}
