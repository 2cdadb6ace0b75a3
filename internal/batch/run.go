// Package batch sequences scanner output through the ledger and the worker
// runner, one task at a time. Serial execution is a deliberate policy: a
// single pipeline worker is assumed to saturate GPU memory on its own, so
// the process boundary is the resource budget.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mocap-batch-runner/internal/ledger"
	"mocap-batch-runner/internal/model"
	"mocap-batch-runner/internal/pipeline"
	"mocap-batch-runner/internal/runstore"
	"mocap-batch-runner/internal/scan"
)

const workerLogName = "worker.log"

type Options struct {
	InputRoot  string
	OutputRoot string
	CalibRoot  string

	WorkerCommand string
	StaticCamera  bool
	// MaxFrames caps frames processed per task; <= 0 processes all frames.
	MaxFrames int
	// MaxTasks caps worker executions this invocation; 0 means no cap.
	// Skipped tasks do not count against it.
	MaxTasks int
	// TaskTimeout kills a hung worker; 0 disables.
	TaskTimeout time.Duration

	SuccessMarker string
	FailureMarker string

	// EchoWorkerOutput mirrors worker stdout/stderr to the terminal in
	// addition to the per-task log file.
	EchoWorkerOutput bool

	Logger *zap.Logger
}

// Run executes one batch over the corpus. The returned report is valid even
// when err is non-nil: an interrupt yields the partial report plus the
// context error.
func Run(ctx context.Context, opts Options) (model.RunReport, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tasks, err := scan.Scan(scan.Options{
		InputRoot:  opts.InputRoot,
		OutputRoot: opts.OutputRoot,
		CalibRoot:  opts.CalibRoot,
	})
	if err != nil {
		return model.RunReport{}, err
	}
	log.Info("corpus scanned",
		zap.String("input_root", opts.InputRoot),
		zap.Int("tasks", len(tasks)),
	)

	lock, err := runstore.AcquireBatchLock(opts.OutputRoot)
	if err != nil {
		return model.RunReport{}, err
	}
	defer func() {
		_ = lock.Release()
	}()

	led := ledger.New(
		ledger.WithSuccessMarker(opts.SuccessMarker),
		ledger.WithFailureMarker(opts.FailureMarker),
	)

	started := time.Now().UTC()
	report := model.RunReport{
		SchemaVersion: 1,
		RunID:         newRunID(started),
		StartedAt:     started.Format(time.RFC3339),
		InputRoot:     opts.InputRoot,
		OutputRoot:    opts.OutputRoot,
		CalibRoot:     opts.CalibRoot,
		StaticCamera:  opts.StaticCamera,
		MaxFrames:     opts.MaxFrames,
	}

	attempted := 0
	var runErr error

	for i, task := range tasks {
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		if opts.MaxTasks > 0 && attempted >= opts.MaxTasks {
			log.Info("task cap reached, stopping", zap.Int("max_tasks", opts.MaxTasks))
			break
		}

		outcome, reason, spawned, err := processTask(ctx, led, task, opts, log)
		if err != nil {
			// Only an interrupt escapes processTask; every per-task
			// failure becomes an outcome instead.
			runErr = err
			break
		}
		if spawned {
			attempted++
		}

		report.Outcomes = append(report.Outcomes, model.TaskOutcome{
			Task:    task.Name,
			Input:   task.InputPath,
			Outcome: outcome,
			Reason:  reason,
		})
		logTaskOutcome(log, i+1, len(tasks), task, outcome, reason)

		// Checkpoint after every task so an external kill still leaves a
		// usable report on disk.
		report.Recount()
		report.FinishedAt = time.Now().UTC().Format(time.RFC3339)
		if err := runstore.SaveReport(opts.OutputRoot, report); err != nil {
			log.Warn("checkpoint report write failed", zap.Error(err))
		}
	}

	report.Recount()
	report.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	if err := runstore.SaveReport(opts.OutputRoot, report); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			log.Warn("final report write failed", zap.Error(err))
		}
	}
	return report, runErr
}

// processTask walks one task through the per-task state machine:
// unprocessable -> classify -> begin attempt -> run worker -> record.
// spawned reports whether a worker process was actually launched.
func processTask(ctx context.Context, led *ledger.Ledger, task model.Task, opts Options, log *zap.Logger) (outcome, reason string, spawned bool, err error) {
	if !task.Processable() {
		return model.OutcomeSkippedUnprocessable, task.SkipReason, false, nil
	}

	switch led.Classify(task.OutputDir) {
	case model.StateDone:
		return model.OutcomeSkippedAlreadyDone, "", false, nil
	case model.StatePreviouslyFailed:
		return model.OutcomeSkippedPreviouslyFailed,
			"failure marker present; reset it to re-attempt", false, nil
	}

	if err := led.BeginAttempt(task.OutputDir); err != nil {
		// Ledger I/O failure is fatal for this task only.
		return model.OutcomeFailed, fmt.Sprintf("ledger: %v", err), false, nil
	}

	logWriter, logFile := openWorkerLog(task.OutputDir, log)
	defer func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}()

	taskCtx := ctx
	cancel := func() {}
	if opts.TaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, opts.TaskTimeout)
	}
	defer cancel()

	runOpts := pipeline.RunOptions{
		Command:      opts.WorkerCommand,
		InputPath:    task.InputPath,
		OutputDir:    task.OutputDir,
		CalibFile:    task.CalibFile,
		StaticCamera: opts.StaticCamera,
		MaxFrames:    opts.MaxFrames,
		LogWriter:    logWriter,
	}
	if opts.EchoWorkerOutput {
		runOpts.EchoWriter = os.Stdout
	}

	result, runErr := pipeline.Run(taskCtx, runOpts)
	if runErr != nil {
		if ctx.Err() != nil {
			// Interrupted. The failure marker stays exactly as
			// BeginAttempt wrote it, which reclassifies the task as
			// previously failed on restart.
			return "", "", true, ctx.Err()
		}
		if errors.Is(runErr, context.DeadlineExceeded) {
			reason := fmt.Sprintf("timeout after %s", opts.TaskTimeout)
			recordFailure(led, task.OutputDir, reason, log)
			return model.OutcomeFailed, reason, true, nil
		}
		reason := runErr.Error()
		recordFailure(led, task.OutputDir, reason, log)
		return model.OutcomeFailed, reason, true, nil
	}

	switch {
	case result.Success():
		if err := led.RecordSuccess(task.OutputDir); err != nil {
			return model.OutcomeFailed, fmt.Sprintf("ledger: %v", err), true, nil
		}
		return model.OutcomeCompleted, "", true, nil
	case result.OOMKilled:
		reason := fmt.Sprintf("oom-killed: %s", result)
		recordFailure(led, task.OutputDir, reason, log)
		return model.OutcomeCrashedOOM, reason, true, nil
	default:
		reason := result.String()
		recordFailure(led, task.OutputDir, reason, log)
		return model.OutcomeFailed, reason, true, nil
	}
}

func recordFailure(led *ledger.Ledger, outputDir, reason string, log *zap.Logger) {
	if err := led.RecordFailure(outputDir, reason); err != nil {
		// The pre-spawn marker still carries the attempt, so losing the
		// reason line is survivable.
		log.Warn("record failure", zap.String("output_dir", outputDir), zap.Error(err))
	}
}

func openWorkerLog(outputDir string, log *zap.Logger) (io.Writer, *os.File) {
	path := filepath.Join(outputDir, workerLogName)
	f, err := os.Create(path)
	if err != nil {
		log.Warn("create worker log", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	return f, f
}

func logTaskOutcome(log *zap.Logger, index, total int, task model.Task, outcome, reason string) {
	fields := []zap.Field{
		zap.String("task", task.Name),
		zap.String("progress", fmt.Sprintf("%d/%d", index, total)),
		zap.String("outcome", outcome),
	}
	if reason != "" {
		fields = append(fields, zap.String("reason", reason))
	}
	switch outcome {
	case model.OutcomeCrashedOOM, model.OutcomeFailed:
		log.Warn("task finished", fields...)
	default:
		log.Info("task finished", fields...)
	}
}

// newRunID prefixes a compact UTC timestamp so report filenames sort
// chronologically, with a UUID fragment for uniqueness.
func newRunID(t time.Time) string {
	return t.Format("20060102T150405Z") + "_" + strings.Split(uuid.NewString(), "-")[0]
}
