// Package scan enumerates the video corpus and derives task descriptors.
// Scanning never mutates state, so it can be re-run any number of times,
// including after a crashed batch, and always yields the same sequence.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"mocap-batch-runner/internal/model"
)

// Video container formats the pipeline accepts, matched case-insensitively.
var videoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {},
}

// Camera id embedded in the task name, e.g. TC_S1_acting1_cam4.
var cameraIDPattern = regexp.MustCompile(`cam(\d+)`)

type Options struct {
	InputRoot  string
	OutputRoot string
	CalibRoot  string
}

// Scan walks the input root and returns one descriptor per video file, in
// lexical order of absolute input path. The ordering is what makes a
// restarted batch resume at the same point in the sequence.
//
// A video with no recognizable camera id, or whose calibration file is
// missing, is still returned — flagged unprocessable — so the coordinator
// can report why it was skipped. Only a missing input root is an error.
func Scan(opts Options) ([]model.Task, error) {
	if strings.TrimSpace(opts.InputRoot) == "" {
		return nil, fmt.Errorf("input root is required")
	}
	inputRoot, err := filepath.Abs(opts.InputRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve input root %s: %w", opts.InputRoot, err)
	}
	if info, err := os.Stat(inputRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("input root %s does not exist or is not a directory", inputRoot)
	}

	var inputs []string
	err = filepath.WalkDir(inputRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := videoExtensions[ext]; !ok {
			return nil
		}
		inputs = append(inputs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input root %s: %w", inputRoot, err)
	}
	sort.Strings(inputs)

	tasks := make([]model.Task, 0, len(inputs))
	for _, input := range inputs {
		tasks = append(tasks, describe(input, inputRoot, opts.OutputRoot, opts.CalibRoot))
	}
	return tasks, nil
}

func describe(input, inputRoot, outputRoot, calibRoot string) model.Task {
	name := taskName(input)
	group := relativeGroup(input, inputRoot)

	task := model.Task{
		InputPath:     input,
		RelativeGroup: group,
		Name:          name,
		OutputDir:     filepath.Join(outputRoot, group, name),
	}

	m := cameraIDPattern.FindStringSubmatch(name)
	if m == nil {
		task.SkipReason = "no camera id in task name"
		return task
	}
	task.CameraID = m[1]

	calibFile := filepath.Join(calibRoot, task.CameraID+".txt")
	if _, err := os.Stat(calibFile); err != nil {
		task.SkipReason = fmt.Sprintf("calibration file %s not found", calibFile)
		return task
	}
	task.CalibFile = calibFile
	return task
}

func taskName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func relativeGroup(input, inputRoot string) string {
	rel, err := filepath.Rel(inputRoot, filepath.Dir(input))
	if err != nil {
		return "."
	}
	return rel
}
