//go:build windows

package executil

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/pkg/log"
)

func (c *Cmd) prepareProcessGroupTermination() {
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

// TerminateProcessGroup kills the process tree of the command. Windows
// has no equivalent of SIGTERM, so there is no graceful phase, we only
// wait for the grace period before reporting an error if the tree
// still didn't go away.
func (c *Cmd) TerminateProcessGroup() error {
	log.Debugf("Killing process tree of %d", c.Process.Pid)
	// taskkill with /t kills the whole process tree, which is the
	// closest Windows equivalent of signalling the process group.
	err := exec.Command("taskkill", "/f", "/t", "/pid", strconv.Itoa(c.Process.Pid)).Run()
	if err != nil {
		// The process might already have exited on its own, in which
		// case taskkill fails. Fall back to killing the main process
		// directly to be sure.
		killErr := c.Process.Kill()
		if killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			return errors.WithStack(killErr)
		}
	}

	select {
	case <-c.waitDone:
	case <-time.After(processGroupTerminationGracePeriod):
	}
	return nil
}

// IsTerminatedExitErr reports whether the error is the exit error of a
// process which was stopped via TerminateProcessGroup. taskkill /f
// makes processes exit with code 1.
func IsTerminatedExitErr(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}
