package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/upcast"
)

// createdSchemaVersion is the current task.created payload generation.
// Version 1 carried a single free-text field and is bridged by the upcaster.
const createdSchemaVersion = 2

// RegisterCommands registers task commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: CommandTypeCreate, AggregateType: AggregateType, ValidatePayload: validateCreatedPayload},
		{Type: CommandTypeRename, AggregateType: AggregateType, ValidatePayload: validateRenamedPayload},
		{Type: CommandTypeComplete, AggregateType: AggregateType},
		{Type: CommandTypeReopen, AggregateType: AggregateType},
		{Type: CommandTypeArchive, AggregateType: AggregateType},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEvents registers task events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: EventTypeCreated, AggregateType: AggregateType, CurrentVersion: createdSchemaVersion, ValidatePayload: validateCreatedPayload},
		{Type: EventTypeRenamed, AggregateType: AggregateType, ValidatePayload: validateRenamedPayload},
		{Type: EventTypeCompleted, AggregateType: AggregateType},
		{Type: EventTypeReopened, AggregateType: AggregateType},
		{Type: EventTypeArchived, AggregateType: AggregateType},
		{Type: EventTypeArchiveDeclined, AggregateType: AggregateType},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterUpcasters registers payload migrations for retired task schemas.
func RegisterUpcasters(chain *upcast.Chain) error {
	if chain == nil {
		return errors.New("upcaster chain is required")
	}
	return chain.Register(EventTypeCreated, 1, upcastCreatedV1)
}

// upcastCreatedV1 bridges {text} to {title, notes}. The legacy text becomes
// the title; notes start empty.
func upcastCreatedV1(payload []byte) ([]byte, error) {
	var v1 createdPayloadV1
	if err := json.Unmarshal(payload, &v1); err != nil {
		return nil, fmt.Errorf("task.created v1 payload: %w", err)
	}
	return json.Marshal(CreatedPayload{Title: strings.TrimSpace(v1.Text)})
}

// validateCreatedPayload ensures created payloads match the current shape.
func validateCreatedPayload(raw json.RawMessage) error {
	var payload CreatedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return nil
}

// validateRenamedPayload ensures renamed payloads match the rename shape.
func validateRenamedPayload(raw json.RawMessage) error {
	var payload RenamedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return nil
}
