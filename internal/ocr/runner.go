package ocr

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes an external command and hands back its output streams.
// Tests swap it for a stub so no tesseract binary is needed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// commandRunner runs the command for real. A canceled or expired ctx kills
// the process.
type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return out.Bytes(), errb.Bytes(), err
}
