package report

import (
	"encoding/json"
	"fmt"

	"github.com/taskline/taskline/internal/domain/event"
)

// FoldHandledTypes returns the event types handled by the report fold function.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		EventTypeRequested,
		EventTypeCompleted,
		EventTypeFailed,
		EventTypeCancelled,
	}
}

// Fold applies an event to report state.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case EventTypeRequested:
		var payload RequestedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("report fold %s: %w", evt.Type, err)
		}
		state.Requested = true
		state.Kind = payload.Kind
	case EventTypeCompleted:
		state.Outcome = OutcomeCompleted
	case EventTypeFailed:
		state.Outcome = OutcomeFailed
	case EventTypeCancelled:
		state.Outcome = OutcomeCancelled
	}
	return state, nil
}
