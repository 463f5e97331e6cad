//go:build windows

package tactile

import (
	"fmt"
	"os/exec"
	"syscall"
)

// killProcessGroup kills the process tree rooted at cmd.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	// taskkill /T reaches grandchildren that Process.Kill would leave behind
	killCmd := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", cmd.Process.Pid))
	killCmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}

	if err := killCmd.Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

// setupProcessGroup hides the console window of spawned processes.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
}

// reapProcessGroup is a no-op: once the root has exited, taskkill /T can no
// longer find its tree. Leftover descendants only cost the drain timeout.
func reapProcessGroup(cmd *exec.Cmd) {}
