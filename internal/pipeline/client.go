// Package pipeline is the client for the external pipeline worker: the
// heavyweight, GPU-bound program that actually processes one video. The
// worker runs as an isolated child process so a crash — including the kernel
// OOM killer — can never take the supervisor down with it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultCommand is the worker binary resolved on PATH. Typically a thin
// entry point around the Python pipeline.
const DefaultCommand = "mocap-pipeline"

type RunOptions struct {
	// Command overrides the worker binary; empty means DefaultCommand.
	Command string

	InputPath    string
	OutputDir    string
	CalibFile    string
	StaticCamera bool
	// MaxFrames caps frames processed per task; <= 0 means all frames.
	MaxFrames int

	// LogWriter receives the worker's combined stdout/stderr, so a crash
	// post-mortem has the pipeline's own diagnostic trace.
	LogWriter io.Writer
	// EchoWriter additionally mirrors worker output, typically to the
	// operator's terminal.
	EchoWriter io.Writer

	// WaitDelay bounds how long Wait blocks on I/O after the process is
	// cancelled. Zero uses a conservative default.
	WaitDelay time.Duration
}

// Result describes how the worker process terminated.
type Result struct {
	// Code is the exit code; -1 when the process was signal-terminated.
	Code int
	// Signaled is true when the OS terminated the process with a signal
	// rather than the worker exiting on its own.
	Signaled bool
	// Signal names the terminating signal when Signaled is true.
	Signal string
	// OOMKilled is true for the SIGKILL convention the kernel OOM killer
	// uses. The decode is platform-specific, not a hardcoded exit code.
	OOMKilled bool
}

func (r Result) Success() bool {
	return !r.Signaled && r.Code == 0
}

func (r Result) String() string {
	if r.Signaled {
		return fmt.Sprintf("terminated by signal: %s", r.Signal)
	}
	return fmt.Sprintf("exit code %d", r.Code)
}

// DependencyReport mirrors the doctor preflight: is the worker binary
// resolvable at all.
type DependencyReport struct {
	WorkerFound bool   `json:"worker_found"`
	WorkerPath  string `json:"worker_path,omitempty"`
	Command     string `json:"command"`
}

func DependencyStatus(command string) DependencyReport {
	cmd := commandOrDefault(command)
	report := DependencyReport{Command: cmd}
	if path, err := exec.LookPath(cmd); err == nil {
		report.WorkerFound = true
		report.WorkerPath = path
	}
	return report
}

func CheckDependencies(command string) error {
	report := DependencyStatus(command)
	if !report.WorkerFound {
		return fmt.Errorf("missing dependency: worker command %q is not installed or not on PATH", report.Command)
	}
	return nil
}

// BuildArgs constructs the worker argv. The parameter tuple is the entire
// contract between supervisor and worker: no environment variables, no
// shared state.
func BuildArgs(opts RunOptions) []string {
	args := []string{
		"--input", opts.InputPath,
		"--output-dir", opts.OutputDir,
		"--calib", opts.CalibFile,
	}
	if opts.StaticCamera {
		args = append(args, "--static-camera")
	}
	if opts.MaxFrames > 0 {
		args = append(args, "--max-frames", strconv.Itoa(opts.MaxFrames))
	}
	return args
}

// Run spawns one worker process for one task and blocks until it terminates.
// The returned Result is populated for every observable termination,
// including signal kills; the error is reserved for the supervisor's own
// failures (spawn error, cancelled context).
func Run(ctx context.Context, opts RunOptions) (Result, error) {
	if strings.TrimSpace(opts.InputPath) == "" {
		return Result{}, fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return Result{}, fmt.Errorf("output directory is required")
	}
	if strings.TrimSpace(opts.CalibFile) == "" {
		return Result{}, fmt.Errorf("calibration file is required")
	}

	args := BuildArgs(opts)
	cmd := exec.CommandContext(ctx, commandOrDefault(opts.Command), args...)
	configureWorkerProcess(cmd)
	cmd.Cancel = func() error {
		terminateWorkerProcess(cmd)
		return nil
	}
	cmd.WaitDelay = opts.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 10 * time.Second
	}

	out := workerOutput(opts)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start worker %s: %w", cmd.Path, err)
	}

	err := cmd.Wait()
	if ctx.Err() != nil {
		// The kill came from us, not the OS. Do not let it masquerade as
		// an OOM crash.
		return Result{}, ctx.Err()
	}
	if err == nil {
		return Result{Code: 0}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return decodeResult(exitErr.ProcessState), nil
	}
	return Result{}, fmt.Errorf("wait for worker %s: %w", cmd.Path, err)
}

func workerOutput(opts RunOptions) io.Writer {
	switch {
	case opts.LogWriter != nil && opts.EchoWriter != nil:
		return io.MultiWriter(opts.LogWriter, opts.EchoWriter)
	case opts.LogWriter != nil:
		return opts.LogWriter
	case opts.EchoWriter != nil:
		return opts.EchoWriter
	default:
		return io.Discard
	}
}

func commandOrDefault(command string) string {
	if strings.TrimSpace(command) == "" {
		return DefaultCommand
	}
	return strings.TrimSpace(command)
}
