// Package command runs the external tools the status display polls
// (systemctl, i2cdetect, raspi-config, ...).
package command

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

// DefaultTimeout bounds each command run by Exec.
const DefaultTimeout = 2 * time.Second

type (
	// Runner runs a command and returns its standard output.
	Runner interface {
		Output(ctx context.Context, name string, args ...string) ([]byte, error)
	}

	// Exec runs commands with os/exec.
	Exec struct {
		Timeout time.Duration
	}
)

func NewExec() *Exec {
	return &Exec{Timeout: DefaultTimeout}
}

func (e *Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// IsNotFound reports whether err means the executable does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// IsExitError reports whether err is a non-zero exit from a command
// that did run.
func IsExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
