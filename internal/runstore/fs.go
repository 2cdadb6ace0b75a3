package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"mocap-batch-runner/internal/model"
)

const reportsDirName = "reports"

func Mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// WriteBytes writes data atomically: temp file in the target directory, then
// rename. A crashed supervisor never leaves a half-written file behind.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".mbr-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON for %s: %w", path, err)
	}
	data = append(data, '\n')
	return WriteBytes(path, data)
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse JSON %s: %w", path, err)
	}
	return nil
}

// ReportsDir is where per-run reports live under an output root.
func ReportsDir(outputRoot string) string {
	return filepath.Join(outputRoot, reportsDirName)
}

func ReportPath(outputRoot, runID string) string {
	return filepath.Join(ReportsDir(outputRoot), runID+".json")
}

func SaveReport(outputRoot string, report model.RunReport) error {
	return WriteJSON(ReportPath(outputRoot, report.RunID), report)
}

func LoadReport(path string) (model.RunReport, error) {
	var report model.RunReport
	if err := ReadJSON(path, &report); err != nil {
		return model.RunReport{}, err
	}
	return report, nil
}

// ListReports returns report file paths for an output root, oldest first.
// Report filenames embed an RFC3339-derived timestamp, so lexical order is
// chronological order.
func ListReports(outputRoot string) ([]string, error) {
	entries, err := os.ReadDir(ReportsDir(outputRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read reports directory %s: %w", ReportsDir(outputRoot), err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(ReportsDir(outputRoot), e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LatestReport loads the most recent run report for an output root.
func LatestReport(outputRoot string) (model.RunReport, error) {
	paths, err := ListReports(outputRoot)
	if err != nil {
		return model.RunReport{}, err
	}
	if len(paths) == 0 {
		return model.RunReport{}, fmt.Errorf("no run reports found in %s", ReportsDir(outputRoot))
	}
	return LoadReport(paths[len(paths)-1])
}
