package model

// Ledger states, derived from durable markers next to a task's outputs.
const (
	StateDone             = "done"
	StatePreviouslyFailed = "previously_failed"
	StateNotStarted       = "not_started"
)

// Outcomes of one task within a batch run.
const (
	OutcomeCompleted               = "completed"
	OutcomeSkippedAlreadyDone      = "skipped_already_done"
	OutcomeSkippedPreviouslyFailed = "skipped_previously_failed"
	OutcomeSkippedUnprocessable    = "skipped_unprocessable"
	OutcomeCrashedOOM              = "crashed_oom"
	OutcomeFailed                  = "failed"
)

var knownOutcomes = map[string]bool{
	OutcomeCompleted:               true,
	OutcomeSkippedAlreadyDone:      true,
	OutcomeSkippedPreviouslyFailed: true,
	OutcomeSkippedUnprocessable:    true,
	OutcomeCrashedOOM:              true,
	OutcomeFailed:                  true,
}

func IsKnownOutcome(outcome string) bool {
	return knownOutcomes[outcome]
}
