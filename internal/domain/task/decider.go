package task

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/decider"
	"github.com/taskline/taskline/internal/domain/event"
)

const (
	CommandTypeCreate   command.Type = "task.create"
	CommandTypeRename   command.Type = "task.rename"
	CommandTypeComplete command.Type = "task.complete"
	CommandTypeReopen   command.Type = "task.reopen"
	CommandTypeArchive  command.Type = "task.archive"

	EventTypeCreated         event.Type = "task.created"
	EventTypeRenamed         event.Type = "task.renamed"
	EventTypeCompleted       event.Type = "task.completed"
	EventTypeReopened        event.Type = "task.reopened"
	EventTypeArchived        event.Type = "task.archived"
	EventTypeArchiveDeclined event.Type = "task.archive_declined"

	rejectionCodeTaskAlreadyExists  = "TASK_ALREADY_EXISTS"
	rejectionCodeTaskNotFound       = "TASK_NOT_FOUND"
	rejectionCodeTaskTitleRequired  = "TASK_TITLE_REQUIRED"
	rejectionCodeTaskArchived       = "TASK_ARCHIVED"
	rejectionCodeTaskNotCompleted   = "TASK_NOT_COMPLETED"
	rejectionCodeTaskAlreadyDone    = "TASK_ALREADY_COMPLETED"
	rejectionCodeTaskAlreadyOpen    = "TASK_ALREADY_OPEN"
	rejectionCodeTaskAlreadyRemoved = "TASK_ALREADY_ARCHIVED"
)

// Decider returns the task aggregate's pure decision core.
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
	}
}

// Decide returns the decision for a task command against current state.
//
// Archiving an open task is not an error path: it produces a recorded
// task.archive_declined event so the attempt survives in the journal while
// the task's data stays untouched.
func Decide(state State, cmd command.Command, now time.Time) command.Decision {
	if cmd.Type == CommandTypeCreate {
		if state.Created {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTaskAlreadyExists,
				Message: "task already exists",
			})
		}
		var payload CreatedPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		title := strings.TrimSpace(payload.Title)
		if title == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTaskTitleRequired,
				Message: "task title is required",
			})
		}

		normalized := CreatedPayload{Title: title, Notes: strings.TrimSpace(payload.Notes)}
		payloadJSON, _ := json.Marshal(normalized)
		return command.Accept(command.NewEvent(cmd, EventTypeCreated, payloadJSON, now))
	}

	if cmd.Type == CommandTypeRename {
		if rejection, ok := requireLiveTask(state); !ok {
			return command.Reject(rejection)
		}
		var payload RenamedPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		title := strings.TrimSpace(payload.Title)
		if title == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTaskTitleRequired,
				Message: "task title is required",
			})
		}

		payloadJSON, _ := json.Marshal(RenamedPayload{Title: title})
		return command.Accept(command.NewEvent(cmd, EventTypeRenamed, payloadJSON, now))
	}

	if cmd.Type == CommandTypeComplete {
		if rejection, ok := requireLiveTask(state); !ok {
			return command.Reject(rejection)
		}
		if state.Completed {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTaskAlreadyDone,
				Message: "task is already completed",
			})
		}

		payloadJSON, _ := json.Marshal(CompletedPayload{})
		return command.Accept(command.NewEvent(cmd, EventTypeCompleted, payloadJSON, now))
	}

	if cmd.Type == CommandTypeReopen {
		if rejection, ok := requireLiveTask(state); !ok {
			return command.Reject(rejection)
		}
		if !state.Completed {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTaskAlreadyOpen,
				Message: "task is not completed",
			})
		}
		var payload ReopenedPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		payloadJSON, _ := json.Marshal(ReopenedPayload{Reason: strings.TrimSpace(payload.Reason)})
		return command.Accept(command.NewEvent(cmd, EventTypeReopened, payloadJSON, now))
	}

	if cmd.Type == CommandTypeArchive {
		if !state.Created {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTaskNotFound,
				Message: "task does not exist",
			})
		}
		if state.Archived {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeTaskAlreadyRemoved,
				Message: "task is already archived",
			})
		}
		if !state.Completed {
			payloadJSON, _ := json.Marshal(ArchiveDeclinedPayload{Reason: "task is still open"})
			return command.Accept(command.NewEvent(cmd, EventTypeArchiveDeclined, payloadJSON, now))
		}

		payloadJSON, _ := json.Marshal(ArchivedPayload{})
		return command.Accept(command.NewEvent(cmd, EventTypeArchived, payloadJSON, now))
	}

	return command.Decision{}
}

func requireLiveTask(state State) (command.Rejection, bool) {
	if !state.Created {
		return command.Rejection{
			Code:    rejectionCodeTaskNotFound,
			Message: "task does not exist",
		}, false
	}
	if state.Archived {
		return command.Rejection{
			Code:    rejectionCodeTaskArchived,
			Message: "task is archived",
		}, false
	}
	return command.Rejection{}, true
}
