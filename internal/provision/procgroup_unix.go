//go:build unix

package provision

import (
	"os/exec"
	"syscall"
)

// killProcessGroup runs cmd in its own process group so that cancelling the
// context also kills everything the shell started.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
