package ingest

// State names a plane's position in the ingestion state machine.
type State string

const (
	StatePending         State = "pending"
	StateOverrideWritten State = "override_written"
	StateToolInvoked     State = "tool_invoked"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
)

// PlaneResult records the terminal state of one catalog plane.
type PlaneResult struct {
	Collection    string
	ObservationID string
	ProductID     string
	State         State
	Message       string
}

func (r *PlaneResult) fail(message string) {
	r.State = StateFailed
	r.Message = message
}

// Summary reports a run: every driven plane's result plus the ledger
// counts. Completed work is never rolled back, so a summary with failures
// still describes committed observations.
type Summary struct {
	RunID    string
	Planes   []*PlaneResult
	Errors   int
	Warnings int
}

// NewSummary captures the run identity and current ledger counts. Runs that
// never drive planes (check, store) summarize through this directly.
func NewSummary(rc *RunContext) *Summary {
	return &Summary{
		RunID:    rc.ID,
		Errors:   rc.Ledger.ErrorCount(),
		Warnings: rc.Ledger.WarningCount(),
	}
}

// Succeeded counts planes that committed.
func (s *Summary) Succeeded() int {
	return s.countState(StateSucceeded)
}

// Failed counts planes that did not commit.
func (s *Summary) Failed() int {
	return s.countState(StateFailed)
}

func (s *Summary) countState(state State) int {
	n := 0
	for _, plane := range s.Planes {
		if plane.State == state {
			n++
		}
	}
	return n
}
