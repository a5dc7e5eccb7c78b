//go:build windows

/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see executor.go for full license header)
 ***************************************************************************** */

package executor

import "os/exec"

func shellPath() string { return "cmd.exe" }
func shellFlag() string { return "/C" }

func applyProcessGroup(cmd *exec.Cmd) {
	// Job Objects are the idiomatic Windows equivalent of a process group;
	// left unimplemented with stdlib syscall, matching the donor's worker_windows.go.
}
