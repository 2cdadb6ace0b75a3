package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mocap-batch-runner/internal/config"
	"mocap-batch-runner/internal/ledger"
	"mocap-batch-runner/internal/model"
	"mocap-batch-runner/internal/runstore"
	"mocap-batch-runner/internal/scan"
)

var statusFlags struct {
	inputRoot  string
	outputRoot string
	calibRoot  string
	lastReport bool
	verbose    bool
	jsonOut    bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "classify every task without spawning workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusFlags.lastReport {
			report, err := runstore.LatestReport(statusFlags.outputRoot)
			if err != nil {
				return err
			}
			if statusFlags.jsonOut {
				return printJSON(report)
			}
			fmt.Println(renderReport(report))
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		tasks, err := scan.Scan(scan.Options{
			InputRoot:  statusFlags.inputRoot,
			OutputRoot: statusFlags.outputRoot,
			CalibRoot:  statusFlags.calibRoot,
		})
		if err != nil {
			return err
		}

		led := ledger.New(
			ledger.WithSuccessMarker(cfg.SuccessMarker),
			ledger.WithFailureMarker(cfg.FailureMarker),
		)

		rollup := statusRollup{InputRoot: statusFlags.inputRoot, Total: len(tasks)}
		for _, task := range tasks {
			entry := statusRollupTask{Task: task.Name}
			if !task.Processable() {
				rollup.Unprocessable++
				entry.State = "unprocessable"
				entry.Reason = task.SkipReason
			} else {
				entry.State = led.Classify(task.OutputDir)
				switch entry.State {
				case model.StateDone:
					rollup.Done++
				case model.StatePreviouslyFailed:
					rollup.PrevFailed++
				default:
					rollup.NotStarted++
				}
			}
			if statusFlags.verbose {
				rollup.Tasks = append(rollup.Tasks, entry)
			}
		}

		if statusFlags.jsonOut {
			return printJSON(rollup)
		}
		fmt.Println(renderStatus(rollup))
		if statusFlags.verbose {
			for _, t := range rollup.Tasks {
				if t.Reason != "" {
					fmt.Printf("  %-24s %s (%s)\n", t.Task, t.State, t.Reason)
				} else {
					fmt.Printf("  %-24s %s\n", t.Task, t.State)
				}
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFlags.inputRoot, "input-root", "", "root directory of the video corpus")
	statusCmd.Flags().StringVar(&statusFlags.outputRoot, "output-root", "", "root directory for per-task outputs")
	statusCmd.Flags().StringVar(&statusFlags.calibRoot, "calib-root", "", "directory of per-camera calibration files")
	statusCmd.Flags().BoolVar(&statusFlags.lastReport, "last-report", false, "show the latest run report instead of scanning")
	statusCmd.Flags().BoolVar(&statusFlags.verbose, "verbose", false, "list every task with its state")
	statusCmd.Flags().BoolVar(&statusFlags.jsonOut, "json", false, "print JSON output")

	_ = statusCmd.MarkFlagRequired("output-root")
}
