package report

import (
	"encoding/json"
	"errors"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/event"
)

// RegisterCommands registers report commands with the shared registry.
// Terminal commands come from the background worker and retry on conflicts;
// the user-facing request fails fast.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: CommandTypeRequest, AggregateType: AggregateType, ValidatePayload: validateRequestedPayload},
		{Type: CommandTypeComplete, AggregateType: AggregateType, Conflict: command.ConflictRetry},
		{Type: CommandTypeFail, AggregateType: AggregateType, Conflict: command.ConflictRetry},
		{Type: CommandTypeCancel, AggregateType: AggregateType, Conflict: command.ConflictRetry},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEvents registers report events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: EventTypeRequested, AggregateType: AggregateType, ValidatePayload: validateRequestedPayload},
		{Type: EventTypeCompleted, AggregateType: AggregateType},
		{Type: EventTypeFailed, AggregateType: AggregateType},
		{Type: EventTypeCancelled, AggregateType: AggregateType},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// validateRequestedPayload ensures request payloads match the requested shape.
func validateRequestedPayload(raw json.RawMessage) error {
	var payload RequestedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return nil
}
