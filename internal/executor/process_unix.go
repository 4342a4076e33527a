//go:build !windows

package executor

import (
	"os"
	"os/exec"
	"syscall"
)

func defaultShell() []string { return []string{"/bin/sh", "-c"} }

// setProcessGroup puts the child in its own process group so the whole tree
// can be signalled.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
}

func kill(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

// signalOf returns the name and number of the signal that killed the
// process, if any.
func signalOf(state *os.ProcessState) (string, int) {
	if state == nil {
		return "", 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal().String(), int(ws.Signal())
	}
	return "", 0
}
