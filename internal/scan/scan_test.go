package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocap-batch-runner/internal/model"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func testRoots(t *testing.T) (inputRoot, outputRoot, calibRoot string) {
	t.Helper()
	tmp := t.TempDir()
	inputRoot = filepath.Join(tmp, "videos")
	outputRoot = filepath.Join(tmp, "results")
	calibRoot = filepath.Join(tmp, "calib")
	require.NoError(t, os.MkdirAll(inputRoot, 0o755))
	require.NoError(t, os.MkdirAll(calibRoot, 0o755))
	return inputRoot, outputRoot, calibRoot
}

func TestScanSkipReasons(t *testing.T) {
	inputRoot, outputRoot, calibRoot := testRoots(t)

	writeFile(t, filepath.Join(inputRoot, "a_cam1.mp4"))
	writeFile(t, filepath.Join(inputRoot, "b_cam9.mp4"))
	writeFile(t, filepath.Join(inputRoot, "c.mp4"))
	writeFile(t, filepath.Join(calibRoot, "1.txt"))

	tasks, err := Scan(Options{InputRoot: inputRoot, OutputRoot: outputRoot, CalibRoot: calibRoot})
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	byName := map[string]model.Task{}
	for _, task := range tasks {
		byName[task.Name] = task
	}

	a := byName["a_cam1"]
	assert.True(t, a.Processable())
	assert.Equal(t, "1", a.CameraID)
	assert.Equal(t, filepath.Join(calibRoot, "1.txt"), a.CalibFile)
	assert.Equal(t, filepath.Join(outputRoot, "a_cam1"), a.OutputDir)

	b := byName["b_cam9"]
	assert.False(t, b.Processable())
	assert.Equal(t, "9", b.CameraID)
	assert.Contains(t, b.SkipReason, "9.txt")

	c := byName["c"]
	assert.False(t, c.Processable())
	assert.Equal(t, "no camera id in task name", c.SkipReason)
}

func TestScanDeterministicOrder(t *testing.T) {
	inputRoot, outputRoot, calibRoot := testRoots(t)

	writeFile(t, filepath.Join(inputRoot, "s2", "z_cam2.mkv"))
	writeFile(t, filepath.Join(inputRoot, "s1", "a_cam1.mp4"))
	writeFile(t, filepath.Join(inputRoot, "s1", "b_cam1.AVI"))
	writeFile(t, filepath.Join(inputRoot, "notes.txt"))
	writeFile(t, filepath.Join(calibRoot, "1.txt"))
	writeFile(t, filepath.Join(calibRoot, "2.txt"))

	first, err := Scan(Options{InputRoot: inputRoot, OutputRoot: outputRoot, CalibRoot: calibRoot})
	require.NoError(t, err)
	second, err := Scan(Options{InputRoot: inputRoot, OutputRoot: outputRoot, CalibRoot: calibRoot})
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)

	names := []string{first[0].Name, first[1].Name, first[2].Name}
	assert.Equal(t, []string{"a_cam1", "b_cam1", "z_cam2"}, names)

	assert.Equal(t, "s1", first[0].RelativeGroup)
	assert.Equal(t, filepath.Join(outputRoot, "s1", "a_cam1"), first[0].OutputDir)
	assert.Equal(t, "s2", first[2].RelativeGroup)
}

func TestScanCaseInsensitiveExtensions(t *testing.T) {
	inputRoot, outputRoot, calibRoot := testRoots(t)

	writeFile(t, filepath.Join(inputRoot, "a_cam1.MP4"))
	writeFile(t, filepath.Join(inputRoot, "b_cam1.MoV"))
	writeFile(t, filepath.Join(inputRoot, "c_cam1.webm"))
	writeFile(t, filepath.Join(calibRoot, "1.txt"))

	tasks, err := Scan(Options{InputRoot: inputRoot, OutputRoot: outputRoot, CalibRoot: calibRoot})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a_cam1", tasks[0].Name)
	assert.Equal(t, "b_cam1", tasks[1].Name)
}

func TestScanMissingInputRootIsFatal(t *testing.T) {
	tmp := t.TempDir()
	_, err := Scan(Options{
		InputRoot:  filepath.Join(tmp, "does-not-exist"),
		OutputRoot: filepath.Join(tmp, "out"),
		CalibRoot:  filepath.Join(tmp, "calib"),
	})
	require.Error(t, err)
}

func TestScanDoesNotMutateState(t *testing.T) {
	inputRoot, outputRoot, calibRoot := testRoots(t)
	writeFile(t, filepath.Join(inputRoot, "a_cam1.mp4"))
	writeFile(t, filepath.Join(calibRoot, "1.txt"))

	_, err := Scan(Options{InputRoot: inputRoot, OutputRoot: outputRoot, CalibRoot: calibRoot})
	require.NoError(t, err)

	_, err = os.Stat(outputRoot)
	assert.True(t, os.IsNotExist(err), "scan must not create output directories")
}
