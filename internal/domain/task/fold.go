package task

import (
	"encoding/json"
	"fmt"

	"github.com/taskline/taskline/internal/domain/event"
)

// FoldHandledTypes returns the event types handled by the task fold function.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		EventTypeCreated,
		EventTypeRenamed,
		EventTypeCompleted,
		EventTypeReopened,
		EventTypeArchived,
		EventTypeArchiveDeclined,
	}
}

// Fold applies an event to task state. It returns an error if a recognized
// event carries a payload that cannot be unmarshalled; unrecognized events
// leave state unchanged so replay is total.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case EventTypeCreated:
		var payload CreatedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("task fold %s: %w", evt.Type, err)
		}
		state.Created = true
		state.Title = payload.Title
		state.Notes = payload.Notes
	case EventTypeRenamed:
		var payload RenamedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("task fold %s: %w", evt.Type, err)
		}
		state.Title = payload.Title
	case EventTypeCompleted:
		state.Completed = true
	case EventTypeReopened:
		state.Completed = false
	case EventTypeArchived:
		state.Archived = true
	case EventTypeArchiveDeclined:
		// Recorded attempt only; prior data stays untouched.
	}
	return state, nil
}
