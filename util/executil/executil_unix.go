//go:build !windows

package executil

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/fuzzall/fuzzall/pkg/log"
)

// prepareProcessGroupTermination puts the process into its own process
// group, so that TerminateProcessGroup can signal the process and all
// its children in one go.
func (c *Cmd) prepareProcessGroupTermination() {
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.Setpgid = true
}

// TerminateProcessGroup sends SIGTERM to the process group of the
// command and, if the command didn't exit within the grace period,
// SIGKILL.
func (c *Cmd) TerminateProcessGroup() error {
	log.Debugf("Sending SIGTERM to process group %d", c.Process.Pid)
	// We ignore ESRCH here because the process group might already have
	// terminated on its own.
	err := unix.Kill(-c.Process.Pid, unix.SIGTERM)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return errors.WithStack(err)
	}

	select {
	case <-c.waitDone:
		return nil
	case <-time.After(processGroupTerminationGracePeriod):
	}

	log.Debugf("Process group %d didn't exit within the grace period, sending SIGKILL", c.Process.Pid)
	err = unix.Kill(-c.Process.Pid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return errors.WithStack(err)
	}
	return nil
}

// IsTerminatedExitErr reports whether the error is the exit error of a
// process which was stopped via TerminateProcessGroup.
func IsTerminatedExitErr(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return status.Signaled() && (status.Signal() == unix.SIGTERM || status.Signal() == unix.SIGKILL)
}
