//go:build windows

package pipeline

import (
	"os"
	"os/exec"
)

func configureWorkerProcess(cmd *exec.Cmd) {}

func terminateWorkerProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

// Windows has no signal-termination encoding in the exit status; every
// abnormal termination surfaces as a plain non-zero exit code.
func decodeResult(state *os.ProcessState) Result {
	if state == nil {
		return Result{Code: -1}
	}
	return Result{Code: state.ExitCode()}
}
