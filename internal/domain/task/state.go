package task

// AggregateType is the aggregate family for task events and commands.
const AggregateType = "task"

// State captures the replayed task context for command routing.
type State struct {
	// Created indicates whether a create command has been accepted.
	Created bool
	// Title is the current human-facing label.
	Title string
	// Notes carries freeform detail attached at creation.
	Notes string
	// Completed indicates the task is done and eligible for archiving.
	Completed bool
	// Archived marks the task as immutable; no further commands apply.
	Archived bool
}
