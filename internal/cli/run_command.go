package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mocap-batch-runner/internal/batch"
	"mocap-batch-runner/internal/config"
	"mocap-batch-runner/internal/logging"
)

var runFlags struct {
	inputRoot     string
	outputRoot    string
	calibRoot     string
	workerCommand string
	staticCamera  bool
	maxFrames     int
	maxTasks      int
	taskTimeout   time.Duration
	echoOutput    bool
	jsonOut       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "process every pending video in the corpus, one worker at a time",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		logger := logging.Build(cfg.LogLevel)
		defer func() {
			_ = logger.Sync()
		}()

		workerCommand := runFlags.workerCommand
		if workerCommand == "" {
			workerCommand = cfg.WorkerCommand
		}
		taskTimeout := runFlags.taskTimeout
		if taskTimeout == 0 {
			taskTimeout = cfg.TaskTimeout
		}

		// An interrupt must also take down the in-flight worker's process
		// group; no orphan worker may outlive the supervisor.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := batch.Run(ctx, batch.Options{
			InputRoot:        runFlags.inputRoot,
			OutputRoot:       runFlags.outputRoot,
			CalibRoot:        runFlags.calibRoot,
			WorkerCommand:    workerCommand,
			StaticCamera:     runFlags.staticCamera,
			MaxFrames:        runFlags.maxFrames,
			MaxTasks:         runFlags.maxTasks,
			TaskTimeout:      taskTimeout,
			SuccessMarker:    cfg.SuccessMarker,
			FailureMarker:    cfg.FailureMarker,
			EchoWorkerOutput: runFlags.echoOutput,
			Logger:           logger,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		interrupted := errors.Is(err, context.Canceled)
		if interrupted {
			logger.Warn("run interrupted; in-flight task will reclassify as previously failed",
				zap.String("run_id", report.RunID))
		}

		if runFlags.jsonOut {
			return printJSON(report)
		}
		fmt.Println(renderReport(report))
		if interrupted {
			return fmt.Errorf("run %s interrupted before the corpus was exhausted", report.RunID)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.inputRoot, "input-root", "", "root directory of the video corpus")
	runCmd.Flags().StringVar(&runFlags.outputRoot, "output-root", "", "root directory for per-task outputs")
	runCmd.Flags().StringVar(&runFlags.calibRoot, "calib-root", "", "directory of per-camera calibration files (<cam_id>.txt)")
	runCmd.Flags().StringVar(&runFlags.workerCommand, "worker-command", "", "pipeline worker binary (default from MOCAP_BATCH_WORKER_COMMAND)")
	runCmd.Flags().BoolVar(&runFlags.staticCamera, "static-camera", false, "fixed-camera processing mode")
	runCmd.Flags().IntVar(&runFlags.maxFrames, "max-frames", 0, "cap frames processed per task (0 = all frames)")
	runCmd.Flags().IntVar(&runFlags.maxTasks, "max-tasks", 0, "cap worker executions this invocation (0 = no cap)")
	runCmd.Flags().DurationVar(&runFlags.taskTimeout, "task-timeout", 0, "kill a hung worker after this duration (0 = no timeout)")
	runCmd.Flags().BoolVar(&runFlags.echoOutput, "echo-worker-output", false, "mirror worker stdout/stderr to the terminal")
	runCmd.Flags().BoolVar(&runFlags.jsonOut, "json", false, "print the run report as JSON")

	_ = runCmd.MarkFlagRequired("input-root")
	_ = runCmd.MarkFlagRequired("output-root")
	_ = runCmd.MarkFlagRequired("calib-root")
}
