package model

// EventKind tags a ProgressEvent variant.
type EventKind string

const (
	EventResearchStarted      EventKind = "research-started"
	EventTargetsFound         EventKind = "targets-found"
	EventTargetSearchStarted  EventKind = "target-search-started"
	EventTargetSearchFinished EventKind = "target-search-finished"
	EventRunComplete          EventKind = "run-complete"
	EventRunFailed            EventKind = "run-failed"
)

// TargetResult is the payload of a target-search-finished event.
// Status is "done" or "error"; Err is set only for "error".
type TargetResult struct {
	Target Target
	Found  int
	New    int
	Status string
	Err    string
}

// ProgressEvent is one element of the discovery pipeline's ordered stream.
// Events are emitted in the exact order the corresponding work happens; the
// finished event for target i always follows its started event and precedes
// the started event for target i+1. Exactly one terminal event
// (run-complete or run-failed) ends every stream.
type ProgressEvent struct {
	Kind EventKind

	// research-started / run-failed
	Message string

	// targets-found
	Targets []Target

	// target-search-started: the target about to be searched, with its
	// position in the batch.
	Target *Target
	Index  int
	Total  int

	// target-search-finished
	Result *TargetResult

	// run-complete
	TotalNew int
	Results  []TargetResult
}
