package report

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/decider"
	"github.com/taskline/taskline/internal/domain/event"
)

const (
	CommandTypeRequest  command.Type = "report.request"
	CommandTypeComplete command.Type = "report.complete"
	CommandTypeFail     command.Type = "report.fail"
	CommandTypeCancel   command.Type = "report.cancel"

	EventTypeRequested event.Type = "report.requested"
	EventTypeCompleted event.Type = "report.completed"
	EventTypeFailed    event.Type = "report.failed"
	EventTypeCancelled event.Type = "report.cancelled"

	rejectionCodeReportAlreadyRequested = "REPORT_ALREADY_REQUESTED"
	rejectionCodeReportNotRequested     = "REPORT_NOT_REQUESTED"
	rejectionCodeReportKindRequired     = "REPORT_KIND_REQUIRED"
	rejectionCodeReportReasonRequired   = "REPORT_REASON_REQUIRED"
)

// Decider returns the report aggregate's pure decision core.
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

// Decide returns the decision for a report command against current state.
//
// Terminal commands on an already-terminal report produce an empty decision
// instead of a rejection: the background worker and a cancellation can race,
// and whichever outcome commits first wins without failing the other.
func Decide(state State, cmd command.Command, now time.Time) command.Decision {
	if cmd.Type == CommandTypeRequest {
		if state.Requested {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeReportAlreadyRequested,
				Message: "report already requested",
			})
		}
		var payload RequestedPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		kind := strings.TrimSpace(payload.Kind)
		if kind == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeReportKindRequired,
				Message: "report kind is required",
			})
		}

		payloadJSON, _ := json.Marshal(RequestedPayload{Kind: kind})
		return command.Accept(command.NewEvent(cmd, EventTypeRequested, payloadJSON, now))
	}

	if cmd.Type == CommandTypeComplete {
		if rejection, ok := requireRunningReport(state); !ok {
			return rejection
		}
		var payload CompletedPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		payloadJSON, _ := json.Marshal(payload)
		return command.Accept(command.NewEvent(cmd, EventTypeCompleted, payloadJSON, now))
	}

	if cmd.Type == CommandTypeFail {
		if rejection, ok := requireRunningReport(state); !ok {
			return rejection
		}
		var payload FailedPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		reason := strings.TrimSpace(payload.Reason)
		if reason == "" {
			return command.Reject(command.Rejection{
				Code:    rejectionCodeReportReasonRequired,
				Message: "failure reason is required",
			})
		}

		payloadJSON, _ := json.Marshal(FailedPayload{Reason: reason})
		return command.Accept(command.NewEvent(cmd, EventTypeFailed, payloadJSON, now))
	}

	if cmd.Type == CommandTypeCancel {
		if rejection, ok := requireRunningReport(state); !ok {
			return rejection
		}
		var payload CancelledPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)

		payloadJSON, _ := json.Marshal(CancelledPayload{Reason: strings.TrimSpace(payload.Reason)})
		return command.Accept(command.NewEvent(cmd, EventTypeCancelled, payloadJSON, now))
	}

	return command.Decision{}
}

func requireRunningReport(state State) (command.Decision, bool) {
	if !state.Requested {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeReportNotRequested,
			Message: "report was not requested",
		}), false
	}
	if state.Terminal() {
		return command.Decision{}, false
	}
	return command.Decision{}, true
}
