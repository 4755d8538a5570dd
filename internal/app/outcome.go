package app

// OutcomeStatus is the terminal state of one handler or per-item job step.
type OutcomeStatus string

const (
	OutcomeDispatched OutcomeStatus = "dispatched"
	OutcomeSkipped    OutcomeStatus = "skipped"
	OutcomeFailed     OutcomeStatus = "failed"
)

// Outcome reports what a handler did. Handlers never return errors; a
// failure is described here and already logged.
type Outcome struct {
	Status OutcomeStatus
	Reason string
	Result *DispatchResult
	Err    error
}

func dispatched(r *DispatchResult) Outcome {
	return Outcome{Status: OutcomeDispatched, Result: r}
}

func skipped(reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}

func failed(reason string, err error) Outcome {
	return Outcome{Status: OutcomeFailed, Reason: reason, Err: err}
}
