package board

// AggregateType is the aggregate family for board events and commands.
const AggregateType = "board"

// DefaultBoardID is the board that collects task activity when no explicit
// board routing exists.
const DefaultBoardID = "main"

// State captures the replayed board counters.
//
// Tracked sets make the tracking commands idempotent under conflict retry:
// a re-decided command observes the task already counted and emits nothing.
type State struct {
	// TaskCount is the number of distinct tasks tracked on this board.
	TaskCount int
	// CompletedCount is the number of distinct tasks completed on this board.
	CompletedCount int
	// Tracked records task ids already counted into TaskCount.
	Tracked map[string]bool
	// CompletedTasks records task ids already counted into CompletedCount.
	CompletedTasks map[string]bool
}
