//go:build !windows

package pipeline

import (
	"os"
	"os/exec"
	"syscall"
)

func configureWorkerProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateWorkerProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if pid <= 0 {
		return
	}
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		// Negative PGID targets the full process group, so no GPU-holding
		// grandchild outlives the supervisor.
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return
	}
	_ = cmd.Process.Kill()
}

// decodeResult inspects the platform wait status. SIGKILL is how the kernel
// OOM killer terminates a process, so it maps to the OOM convention; other
// signals stay visible through Signaled/Signal.
func decodeResult(state *os.ProcessState) Result {
	if state == nil {
		return Result{Code: -1}
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()
		return Result{
			Code:      -1,
			Signaled:  true,
			Signal:    sig.String(),
			OOMKilled: sig == syscall.SIGKILL,
		}
	}
	return Result{Code: state.ExitCode()}
}
