package cmdutils

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// ErrSilent indicates that the error message was already printed where
// the error occurred and must not be printed again by an outer layer.
var ErrSilent = errors.New("SilentError")

type SilentError struct {
	err error
}

func (e *SilentError) Error() string {
	return e.err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.err
}

func (e *SilentError) Is(target error) bool {
	return target == ErrSilent
}

func WrapSilentError(err error) error {
	return &SilentError{err}
}

// IncorrectUsageError indicates that the command was invoked with
// invalid arguments or flags, so the command's usage should be shown.
type IncorrectUsageError struct {
	err error
}

func (e *IncorrectUsageError) Error() string {
	return e.err.Error()
}

func (e *IncorrectUsageError) Unwrap() error {
	return e.err
}

func WrapIncorrectUsageError(err error) error {
	return &IncorrectUsageError{err}
}

// ExecError indicates that an external command failed. It is expected
// that external commands can fail because of the user's environment,
// so the error is printed without a stack trace in non-verbose mode.
type ExecError struct {
	err error
	cmd *exec.Cmd
}

func (e *ExecError) Error() string {
	if e.cmd == nil {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.cmd.Args, " "), e.err.Error())
}

func (e *ExecError) Unwrap() error {
	return e.err
}

func WrapExecError(err error, cmd *exec.Cmd) error {
	return &ExecError{err, cmd}
}

// SignalError indicates that the process received a terminating
// signal. The process exit code is derived from the signal.
type SignalError struct {
	Signal syscall.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("terminated by signal %d (%s)", int(e.Signal), e.Signal.String())
}

func NewSignalError(signal syscall.Signal) *SignalError {
	return &SignalError{signal}
}
