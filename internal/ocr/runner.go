package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes the external OCR tools (tesseract, pdftoppm, the HEIC
// converters). Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// stderrTail bounds how much tool output lands in a log line.
const stderrTail = 4 << 10

type commandRunner struct {
	logger *slog.Logger
}

func (r commandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	attrs := []any{"tool", name, "argc", len(args), "elapsed_ms", time.Since(started).Milliseconds()}

	switch {
	case err == nil:
		r.logger.Debug("ocr.tool.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	case ctx.Err() != nil:
		// killed by the caller's deadline or cancel; report that instead of "signal: killed"
		r.logger.Warn("ocr.tool.interrupted", append(attrs, "error", ctx.Err())...)
		err = ctx.Err()
	default:
		r.logger.Error("ocr.tool.failed", append(attrs, "error", err, "stderr", tail(stderr.Bytes(), stderrTail))...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// tail keeps the last n bytes of b; tesseract prints the useful part last.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return "..." + string(b[len(b)-n:])
}
