//go:build windows

package executor

import (
	"os"
	"os/exec"
)

func defaultShell() []string { return []string{"cmd", "/C"} }

func setProcessGroup(*exec.Cmd) {}

func terminate(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func kill(cmd *exec.Cmd) { terminate(cmd) }

func signalOf(*os.ProcessState) (string, int) { return "", 0 }
