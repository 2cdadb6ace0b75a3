package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mocap-batch-runner/internal/config"
	"mocap-batch-runner/internal/ledger"
	"mocap-batch-runner/internal/model"
	"mocap-batch-runner/internal/scan"
)

var resetFlags struct {
	inputRoot  string
	outputRoot string
	calibRoot  string
	tasks      []string
	allFailed  bool
	yes        bool
	jsonOut    bool
}

type resetResult struct {
	Reset []string `json:"reset"`
}

// resetCmd is the operator path for re-attempting failed tasks: the
// coordinator never clears a failure marker on its own.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "clear failure markers so tasks are re-attempted on the next run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(resetFlags.tasks) == 0 && !resetFlags.allFailed {
			return fmt.Errorf("nothing to reset: pass --task or --all-failed")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		tasks, err := scan.Scan(scan.Options{
			InputRoot:  resetFlags.inputRoot,
			OutputRoot: resetFlags.outputRoot,
			CalibRoot:  resetFlags.calibRoot,
		})
		if err != nil {
			return err
		}

		led := ledger.New(
			ledger.WithSuccessMarker(cfg.SuccessMarker),
			ledger.WithFailureMarker(cfg.FailureMarker),
		)

		wanted := make(map[string]bool, len(resetFlags.tasks))
		for _, name := range resetFlags.tasks {
			wanted[name] = true
		}

		var targets []model.Task
		for _, task := range tasks {
			if resetFlags.allFailed {
				if led.Classify(task.OutputDir) == model.StatePreviouslyFailed {
					targets = append(targets, task)
				}
				continue
			}
			if wanted[task.Name] {
				targets = append(targets, task)
				delete(wanted, task.Name)
			}
		}
		for name := range wanted {
			return fmt.Errorf("task %q not found in corpus", name)
		}
		if len(targets) == 0 {
			fmt.Println("no matching failure markers to reset")
			return nil
		}

		if !resetFlags.yes {
			ok, err := promptConfirm(fmt.Sprintf("reset %d failure marker(s)? [y/N]: ", len(targets)))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("reset aborted")
			}
		}

		result := resetResult{Reset: []string{}}
		for _, task := range targets {
			removed, err := led.Reset(task.OutputDir)
			if err != nil {
				return err
			}
			if removed {
				result.Reset = append(result.Reset, task.Name)
			}
		}

		if resetFlags.jsonOut {
			return printJSON(result)
		}
		for _, name := range result.Reset {
			fmt.Printf("reset %s\n", name)
		}
		fmt.Printf("%d task(s) will be re-attempted on the next run\n", len(result.Reset))
		return nil
	},
}

func init() {
	resetCmd.Flags().StringVar(&resetFlags.inputRoot, "input-root", "", "root directory of the video corpus")
	resetCmd.Flags().StringVar(&resetFlags.outputRoot, "output-root", "", "root directory for per-task outputs")
	resetCmd.Flags().StringVar(&resetFlags.calibRoot, "calib-root", "", "directory of per-camera calibration files")
	resetCmd.Flags().StringSliceVar(&resetFlags.tasks, "task", nil, "task name to reset (repeatable)")
	resetCmd.Flags().BoolVar(&resetFlags.allFailed, "all-failed", false, "reset every previously failed task")
	resetCmd.Flags().BoolVar(&resetFlags.yes, "yes", false, "skip confirmation")
	resetCmd.Flags().BoolVar(&resetFlags.jsonOut, "json", false, "print JSON output")

	_ = resetCmd.MarkFlagRequired("input-root")
	_ = resetCmd.MarkFlagRequired("output-root")
}
