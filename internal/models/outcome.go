package models

// Outcome is the terminal state of one record in a sync cycle.
type Outcome string

// Record outcomes
const (
	OutcomeCreated      Outcome = "created"
	OutcomeUpdated      Outcome = "updated"
	OutcomeSkippedCache Outcome = "skipped_cache"
	OutcomeSkippedStore Outcome = "skipped_store"
	OutcomeFailed       Outcome = "failed"
)

// Outcomes lists every outcome, in reporting order.
var Outcomes = []Outcome{
	OutcomeCreated,
	OutcomeUpdated,
	OutcomeSkippedCache,
	OutcomeSkippedStore,
	OutcomeFailed,
}

// Summary reports the counts of a sync cycle. Cycles are best-effort, so a
// summary with failures is still a completed cycle.
type Summary struct {
	Fetched      int `json:"fetched"`
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	SkippedCache int `json:"skipped_cache"`
	SkippedStore int `json:"skipped_store"`
	Failed       int `json:"failed"`
}

// Add counts one outcome.
func (s *Summary) Add(o Outcome) {
	switch o {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkippedCache:
		s.SkippedCache++
	case OutcomeSkippedStore:
		s.SkippedStore++
	case OutcomeFailed:
		s.Failed++
	}
}

// Skipped returns the total of both skip outcomes.
func (s Summary) Skipped() int {
	return s.SkippedCache + s.SkippedStore
}
