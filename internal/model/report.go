package model

// maxOutcomeErrors caps the error list per source so a pathological run
// cannot grow a report without bound.
const maxOutcomeErrors = 5

// SourceOutcome accumulates counters for one source (or one discovery
// target) within a single run.
type SourceOutcome struct {
	Source     string
	Found      int
	New        int
	Duplicates int
	Filtered   int
	Enriched   int
	Errors     []string
}

// AddError records an error message, keeping at most maxOutcomeErrors.
func (o *SourceOutcome) AddError(msg string) {
	if len(o.Errors) >= maxOutcomeErrors {
		return
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	o.Errors = append(o.Errors, msg)
}

// Report aggregates the outcomes of one run. It lives for the run and is
// discarded after the caller receives it. Listings holds the records that
// were persisted for the first time during this run, in store order, so the
// caller can hand them to a Notifier.
type Report struct {
	Outcomes []SourceOutcome
	TotalNew int
	Listings []Listing
}

// Append adds a source outcome and folds its new-listing count into the total.
func (r *Report) Append(o SourceOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.TotalNew += o.New
}
