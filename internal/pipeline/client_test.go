package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func installFakeWorker(t *testing.T, script string) {
	t.Helper()
	fakeBin := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(fakeBin, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fakeBin, DefaultCommand), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", fakeBin+":"+os.Getenv("PATH"))
}

func baseOptions(t *testing.T) RunOptions {
	t.Helper()
	tmp := t.TempDir()
	return RunOptions{
		InputPath: filepath.Join(tmp, "a_cam1.mp4"),
		OutputDir: filepath.Join(tmp, "out"),
		CalibFile: filepath.Join(tmp, "1.txt"),
	}
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(RunOptions{
		InputPath:    "/videos/a_cam1.mp4",
		OutputDir:    "/results/a_cam1",
		CalibFile:    "/calib/1.txt",
		StaticCamera: true,
		MaxFrames:    100,
	})
	want := "--input /videos/a_cam1.mp4 --output-dir /results/a_cam1 --calib /calib/1.txt --static-camera --max-frames 100"
	if got := strings.Join(args, " "); got != want {
		t.Fatalf("args mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestBuildArgsOmitsOptionalFlags(t *testing.T) {
	args := BuildArgs(RunOptions{
		InputPath: "/v/a_cam1.mp4",
		OutputDir: "/r/a_cam1",
		CalibFile: "/c/1.txt",
	})
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "--static-camera") || strings.Contains(joined, "--max-frames") {
		t.Fatalf("unexpected optional flags in %s", joined)
	}
}

func TestRunSuccess(t *testing.T) {
	installFakeWorker(t, "#!/usr/bin/env bash\nexit 0\n")

	result, err := Run(context.Background(), baseOptions(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success() || result.Signaled || result.OOMKilled {
		t.Fatalf("expected clean success, got %+v", result)
	}
}

func TestRunApplicationError(t *testing.T) {
	installFakeWorker(t, "#!/usr/bin/env bash\necho 'CUDA error: device-side assert' >&2\nexit 3\n")

	opts := baseOptions(t)
	var log strings.Builder
	opts.LogWriter = &log

	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success() || result.Signaled || result.OOMKilled {
		t.Fatalf("expected application failure, got %+v", result)
	}
	if result.Code != 3 {
		t.Fatalf("expected exit code 3, got %d", result.Code)
	}
	if !strings.Contains(log.String(), "CUDA error") {
		t.Fatalf("worker stderr missing from log: %q", log.String())
	}
}

func TestRunSignalKillIsOOM(t *testing.T) {
	installFakeWorker(t, "#!/usr/bin/env bash\nkill -KILL $$\n")

	result, err := Run(context.Background(), baseOptions(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Signaled || !result.OOMKilled {
		t.Fatalf("expected OOM-style kill, got %+v", result)
	}
	if result.Success() {
		t.Fatal("signal kill must not count as success")
	}
	if !strings.Contains(result.String(), "terminated by signal") {
		t.Fatalf("unexpected status string %q", result.String())
	}
}

func TestRunOtherSignalIsNotOOM(t *testing.T) {
	installFakeWorker(t, "#!/usr/bin/env bash\nkill -TERM $$\n")

	result, err := Run(context.Background(), baseOptions(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Signaled || result.OOMKilled {
		t.Fatalf("expected non-OOM signal termination, got %+v", result)
	}
}

func TestRunPassesParameterTuple(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "argv.txt")
	installFakeWorker(t, "#!/usr/bin/env bash\necho \"$@\" > "+capture+"\nexit 0\n")

	opts := baseOptions(t)
	opts.StaticCamera = true
	opts.MaxFrames = 50

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(capture)
	if err != nil {
		t.Fatalf("read captured argv: %v", err)
	}
	argv := string(data)
	for _, want := range []string{
		"--input " + opts.InputPath,
		"--output-dir " + opts.OutputDir,
		"--calib " + opts.CalibFile,
		"--static-camera",
		"--max-frames 50",
	} {
		if !strings.Contains(argv, want) {
			t.Fatalf("argv %q missing %q", argv, want)
		}
	}
}

func TestRunCancelledContext(t *testing.T) {
	installFakeWorker(t, "#!/usr/bin/env bash\nsleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Run(ctx, baseOptions(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 15*time.Second {
		t.Fatal("cancelled worker did not terminate promptly")
	}
}

func TestRunDeadline(t *testing.T) {
	installFakeWorker(t, "#!/usr/bin/env bash\nsleep 30\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, baseOptions(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestRunMissingWorkerBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	if _, err := Run(context.Background(), baseOptions(t)); err == nil {
		t.Fatal("expected start error for missing worker binary")
	}
	if err := CheckDependencies(""); err == nil {
		t.Fatal("expected dependency check failure")
	}
}

func TestDependencyStatus(t *testing.T) {
	installFakeWorker(t, "#!/usr/bin/env bash\nexit 0\n")

	report := DependencyStatus("")
	if !report.WorkerFound {
		t.Fatalf("expected worker to be found: %+v", report)
	}
	if report.Command != DefaultCommand {
		t.Fatalf("expected default command, got %s", report.Command)
	}
}
