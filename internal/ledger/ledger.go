// Package ledger persists per-task completion state as filesystem markers
// co-located with the task's outputs. Two markers encode three states:
//
//   - the success marker (the pipeline's results artifact) means a prior run
//     fully completed the task;
//   - the failure marker (an append-only text log owned by this package)
//     means a prior attempt started but did not complete;
//   - neither means the task was never attempted.
//
// The failure marker is written before the worker is spawned. That ordering
// is what makes an OOM kill — which leaves no other trace — distinguishable
// from "never attempted" on the next run.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mocap-batch-runner/internal/model"
	"mocap-batch-runner/internal/runstore"
)

const (
	// DefaultSuccessMarker is the results artifact the pipeline worker
	// writes on success. The supervisor only ever checks its existence.
	DefaultSuccessMarker = "results.pkl"
	// DefaultFailureMarker records timestamps and reasons of failed
	// attempts, one line each.
	DefaultFailureMarker = "failed_attempts.log"
)

type Ledger struct {
	successMarker string
	failureMarker string
	now           func() time.Time
}

type Option func(*Ledger)

func WithSuccessMarker(name string) Option {
	return func(l *Ledger) {
		if strings.TrimSpace(name) != "" {
			l.successMarker = name
		}
	}
}

func WithFailureMarker(name string) Option {
	return func(l *Ledger) {
		if strings.TrimSpace(name) != "" {
			l.failureMarker = name
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		successMarker: DefaultSuccessMarker,
		failureMarker: DefaultFailureMarker,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) SuccessMarkerPath(outputDir string) string {
	return filepath.Join(outputDir, l.successMarker)
}

func (l *Ledger) FailureMarkerPath(outputDir string) string {
	return filepath.Join(outputDir, l.failureMarker)
}

// Classify reads marker presence and returns the task's ledger state.
// Side-effect free. The success marker wins if both markers somehow exist;
// RecordSuccess removes the failure marker, so that situation only arises
// when a run died between the worker finishing and the ledger update.
func (l *Ledger) Classify(outputDir string) string {
	if fileExists(l.SuccessMarkerPath(outputDir)) {
		return model.StateDone
	}
	if fileExists(l.FailureMarkerPath(outputDir)) {
		return model.StatePreviouslyFailed
	}
	return model.StateNotStarted
}

// BeginAttempt creates the output directory and overwrites the failure
// marker with a "started" record. Must be called strictly before the worker
// process is launched.
func (l *Ledger) BeginAttempt(outputDir string) error {
	if err := runstore.Mkdir(outputDir); err != nil {
		return err
	}
	line := fmt.Sprintf("%s started\n", l.timestamp())
	path := l.FailureMarkerPath(outputDir)
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write failure marker %s: %w", path, err)
	}
	return nil
}

// RecordSuccess removes the failure marker. Idempotent: a task whose success
// artifact already exists records success cleanly even when no marker is
// present.
func (l *Ledger) RecordSuccess(outputDir string) error {
	path := l.FailureMarkerPath(outputDir)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove failure marker %s: %w", path, err)
	}
	return nil
}

// RecordFailure appends a timestamped reason line to the failure marker.
// The marker is never deleted here; only RecordSuccess or an operator reset
// clears it.
func (l *Ledger) RecordFailure(outputDir, reason string) error {
	path := l.FailureMarkerPath(outputDir)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open failure marker %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	line := fmt.Sprintf("%s failed: %s\n", l.timestamp(), strings.TrimSpace(reason))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append failure marker %s: %w", path, err)
	}
	return nil
}

// Reset removes the failure marker so a previously failed task is
// re-attempted on the next run. This is the operator path; the coordinator
// never calls it.
func (l *Ledger) Reset(outputDir string) (bool, error) {
	path := l.FailureMarkerPath(outputDir)
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("remove failure marker %s: %w", path, err)
}

func (l *Ledger) timestamp() string {
	return l.now().UTC().Format(time.RFC3339)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
