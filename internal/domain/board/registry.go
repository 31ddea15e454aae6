package board

import (
	"encoding/json"
	"errors"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/event"
)

// RegisterCommands registers board commands with the shared registry.
// Tracking commands are system-originated and idempotent, so they retry on
// version conflicts instead of failing fast.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: CommandTypeTrackTask, AggregateType: AggregateType, Conflict: command.ConflictRetry, ValidatePayload: validateTrackTaskPayload},
		{Type: CommandTypeTrackCompletion, AggregateType: AggregateType, Conflict: command.ConflictRetry, ValidatePayload: validateTrackCompletionPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEvents registers board events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: EventTypeTaskTracked, AggregateType: AggregateType, ValidatePayload: validateTrackTaskPayload},
		{Type: EventTypeCompletionTracked, AggregateType: AggregateType, ValidatePayload: validateTrackCompletionPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// validateTrackTaskPayload ensures track payloads match the tracking shape.
func validateTrackTaskPayload(raw json.RawMessage) error {
	var payload TrackTaskPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return nil
}

// validateTrackCompletionPayload ensures completion payloads match the tracking shape.
func validateTrackCompletionPayload(raw json.RawMessage) error {
	var payload TrackCompletionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return nil
}
