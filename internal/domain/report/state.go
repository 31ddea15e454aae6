package report

// AggregateType is the aggregate family for report events and commands.
const AggregateType = "report"

// Outcome labels a report's terminal result.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// State captures the replayed report lifecycle.
type State struct {
	// Requested indicates the export was accepted and work may be running.
	Requested bool
	// Kind is the requested export kind.
	Kind string
	// Outcome is set once a terminal event lands; empty while running.
	Outcome Outcome
}

// Terminal reports whether the report reached a terminal outcome.
func (s State) Terminal() bool {
	return s.Outcome != ""
}
