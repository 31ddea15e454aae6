package board

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/decider"
	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/domain/task"
)

const (
	CommandTypeTrackTask       command.Type = "board.track_task"
	CommandTypeTrackCompletion command.Type = "board.track_completion"

	EventTypeTaskTracked       event.Type = "board.task_tracked"
	EventTypeCompletionTracked event.Type = "board.completion_tracked"

	rejectionCodeBoardTaskIDRequired = "BOARD_TASK_ID_REQUIRED"
)

// Decider returns the board aggregate's pure decision core, including the
// saga reaction feeding it from task events.
func Decider() decider.Decider {
	return decider.Decider{
		AggregateType: AggregateType,
		InitialState:  func() any { return State{} },
		Decide: func(state any, cmd command.Command, now time.Time) command.Decision {
			current, _ := state.(State)
			return Decide(current, cmd, now)
		},
		Evolve: func(state any, evt event.Event) any {
			current, _ := state.(State)
			next, _ := Fold(current, evt)
			return next
		},
		React: React,
	}
}

// Decide returns the decision for a board tracking command.
//
// Tracking is idempotent: a task id already counted yields an empty decision
// so conflict-retried system commands never double-count.
func Decide(state State, cmd command.Command, now time.Time) command.Decision {
	if cmd.Type == CommandTypeTrackTask {
		var payload TrackTaskPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		taskID := strings.TrimSpace(payload.TaskID)
		if taskID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeBoardTaskIDRequired,
				Message: "task id is required",
			})
		}
		if state.Tracked[taskID] {
			return command.Decision{}
		}

		payloadJSON, _ := json.Marshal(TrackTaskPayload{TaskID: taskID})
		return command.Accept(command.NewEvent(cmd, EventTypeTaskTracked, payloadJSON, now))
	}

	if cmd.Type == CommandTypeTrackCompletion {
		var payload TrackCompletionPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		taskID := strings.TrimSpace(payload.TaskID)
		if taskID == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeBoardTaskIDRequired,
				Message: "task id is required",
			})
		}
		if state.CompletedTasks[taskID] {
			return command.Decision{}
		}

		payloadJSON, _ := json.Marshal(TrackCompletionPayload{TaskID: taskID})
		return command.Accept(command.NewEvent(cmd, EventTypeCompletionTracked, payloadJSON, now))
	}

	return command.Decision{}
}

// React maps task events to board tracking commands. The returned commands
// carry the source event as causation so the saga chain stays traceable.
func React(evt event.Event) []command.Command {
	switch evt.Type {
	case task.EventTypeCreated:
		payloadJSON, _ := json.Marshal(TrackTaskPayload{TaskID: evt.AggregateID})
		return []command.Command{trackingCommand(evt, CommandTypeTrackTask, payloadJSON)}
	case task.EventTypeCompleted:
		payloadJSON, _ := json.Marshal(TrackCompletionPayload{TaskID: evt.AggregateID})
		return []command.Command{trackingCommand(evt, CommandTypeTrackCompletion, payloadJSON)}
	}
	return nil
}

func trackingCommand(evt event.Event, cmdType command.Type, payloadJSON []byte) command.Command {
	return command.Command{
		AggregateType: AggregateType,
		AggregateID:   DefaultBoardID,
		Type:          cmdType,
		ActorType:     command.ActorTypeSystem,
		RequestID:     evt.RequestID,
		CorrelationID: evt.CorrelationID,
		CausationID:   evt.EventID,
		PayloadJSON:   payloadJSON,
	}
}
