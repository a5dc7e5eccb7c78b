//go:build !windows

/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see executor.go for full license header)
 ***************************************************************************** */

package executor

import (
	"os/exec"
	"syscall"
)

func shellPath() string { return "/bin/sh" }
func shellFlag() string { return "-c" }

// applyProcessGroup puts the child in its own process group so a timeout
// kill can be extended to any further children it spawns, mirroring the
// donor cluster worker's Setpgid use.
func applyProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
