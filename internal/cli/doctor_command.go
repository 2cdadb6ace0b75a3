package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mocap-batch-runner/internal/config"
	"mocap-batch-runner/internal/pipeline"
)

var doctorFlags struct {
	inputRoot     string
	outputRoot    string
	calibRoot     string
	workerCommand string
	jsonOut       bool
}

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type doctorResult struct {
	OK     bool          `json:"ok"`
	Checks []doctorCheck `json:"checks"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "preflight checks before a batch run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		workerCommand := doctorFlags.workerCommand
		if workerCommand == "" {
			workerCommand = cfg.WorkerCommand
		}

		checks := make([]doctorCheck, 0, 4)

		dep := pipeline.DependencyStatus(workerCommand)
		msg := fmt.Sprintf("%s not found on PATH", dep.Command)
		if dep.WorkerFound {
			msg = dep.WorkerPath
		}
		checks = append(checks, doctorCheck{Name: "dependency:worker", OK: dep.WorkerFound, Message: msg})

		checks = append(checks, dirCheck("input-root", doctorFlags.inputRoot, false))
		checks = append(checks, dirCheck("calib-root", doctorFlags.calibRoot, false))
		checks = append(checks, dirCheck("output-root", doctorFlags.outputRoot, true))

		result := doctorResult{OK: true, Checks: checks}
		for _, c := range checks {
			if !c.OK {
				result.OK = false
			}
		}

		if doctorFlags.jsonOut {
			if err := printJSON(result); err != nil {
				return err
			}
		} else {
			for _, c := range result.Checks {
				mark := "ok"
				if !c.OK {
					mark = "FAIL"
				}
				fmt.Printf("%-20s %-5s %s\n", c.Name, mark, c.Message)
			}
		}
		if !result.OK {
			return fmt.Errorf("preflight checks failed")
		}
		return nil
	},
}

func dirCheck(name, path string, wantWritable bool) doctorCheck {
	check := doctorCheck{Name: "path:" + name}
	if strings.TrimSpace(path) == "" {
		check.Message = "not set"
		return check
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		check.Message = fmt.Sprintf("%s is not an existing directory", path)
		return check
	}
	if wantWritable {
		probe := filepath.Join(path, ".doctor-probe")
		if err := os.WriteFile(probe, nil, 0o644); err != nil {
			check.Message = fmt.Sprintf("%s is not writable: %v", path, err)
			return check
		}
		_ = os.Remove(probe)
	}
	check.OK = true
	check.Message = path
	return check
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFlags.inputRoot, "input-root", "", "root directory of the video corpus")
	doctorCmd.Flags().StringVar(&doctorFlags.outputRoot, "output-root", "", "root directory for per-task outputs")
	doctorCmd.Flags().StringVar(&doctorFlags.calibRoot, "calib-root", "", "directory of per-camera calibration files")
	doctorCmd.Flags().StringVar(&doctorFlags.workerCommand, "worker-command", "", "pipeline worker binary to check")
	doctorCmd.Flags().BoolVar(&doctorFlags.jsonOut, "json", false, "print JSON output")
}
