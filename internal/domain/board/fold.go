package board

import (
	"encoding/json"
	"fmt"

	"github.com/taskline/taskline/internal/domain/event"
)

// FoldHandledTypes returns the event types handled by the board fold function.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		EventTypeTaskTracked,
		EventTypeCompletionTracked,
	}
}

// Fold applies an event to board state. The tracked sets are copied on write
// so replayed snapshots never alias each other's maps.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case EventTypeTaskTracked:
		var payload TrackTaskPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("board fold %s: %w", evt.Type, err)
		}
		if state.Tracked[payload.TaskID] {
			return state, nil
		}
		state.Tracked = copySet(state.Tracked, payload.TaskID)
		state.TaskCount++
	case EventTypeCompletionTracked:
		var payload TrackCompletionPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("board fold %s: %w", evt.Type, err)
		}
		if state.CompletedTasks[payload.TaskID] {
			return state, nil
		}
		state.CompletedTasks = copySet(state.CompletedTasks, payload.TaskID)
		state.CompletedCount++
	}
	return state, nil
}

func copySet(set map[string]bool, add string) map[string]bool {
	next := make(map[string]bool, len(set)+1)
	for key := range set {
		next[key] = true
	}
	next[add] = true
	return next
}
