package model

// Task identifies one unit of work: a single video run through the pipeline
// worker. All paths are absolute except RelativeGroup, which preserves the
// corpus directory structure under the output root.
type Task struct {
	InputPath     string `json:"input_path"`
	RelativeGroup string `json:"relative_group"`
	Name          string `json:"task_name"`
	CameraID      string `json:"camera_id,omitempty"`
	CalibFile     string `json:"calib_file,omitempty"`
	OutputDir     string `json:"output_dir"`

	// SkipReason is set when the task is unprocessable: the scanner still
	// emits the descriptor so the coordinator can report why it was skipped.
	SkipReason string `json:"skip_reason,omitempty"`
}

// Processable reports whether the task carries everything the worker needs.
func (t Task) Processable() bool {
	return t.SkipReason == ""
}

// TaskOutcome is one task's result within a run.
type TaskOutcome struct {
	Task    string `json:"task"`
	Input   string `json:"input_path"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// RunReport is the canonical per-run summary persisted under the output root.
type RunReport struct {
	SchemaVersion int    `json:"schema_version"`
	RunID         string `json:"run_id"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at"`
	InputRoot     string `json:"input_root"`
	OutputRoot    string `json:"output_root"`
	CalibRoot     string `json:"calib_root"`
	StaticCamera  bool   `json:"static_camera"`
	MaxFrames     int    `json:"max_frames,omitempty"`

	Total                   int `json:"total"`
	Completed               int `json:"completed"`
	SkippedAlreadyDone      int `json:"skipped_already_done"`
	SkippedPreviouslyFailed int `json:"skipped_previously_failed"`
	SkippedUnprocessable    int `json:"skipped_unprocessable"`
	CrashedOOM              int `json:"crashed_oom"`
	Failed                  int `json:"failed"`

	Outcomes []TaskOutcome `json:"outcomes"`
}

// Attention returns the outcomes an operator has to follow up on: everything
// that was attempted and did not complete.
func (r RunReport) Attention() []TaskOutcome {
	var out []TaskOutcome
	for _, o := range r.Outcomes {
		if o.Outcome == OutcomeCrashedOOM || o.Outcome == OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}

// Recount rebuilds the per-outcome counters from the outcome list.
func (r *RunReport) Recount() {
	r.Total = len(r.Outcomes)
	r.Completed = 0
	r.SkippedAlreadyDone = 0
	r.SkippedPreviouslyFailed = 0
	r.SkippedUnprocessable = 0
	r.CrashedOOM = 0
	r.Failed = 0

	for _, o := range r.Outcomes {
		switch o.Outcome {
		case OutcomeCompleted:
			r.Completed++
		case OutcomeSkippedAlreadyDone:
			r.SkippedAlreadyDone++
		case OutcomeSkippedPreviouslyFailed:
			r.SkippedPreviouslyFailed++
		case OutcomeSkippedUnprocessable:
			r.SkippedUnprocessable++
		case OutcomeCrashedOOM:
			r.CrashedOOM++
		case OutcomeFailed:
			r.Failed++
		}
	}
}
