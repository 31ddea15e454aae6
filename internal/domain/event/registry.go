package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrTypeRequired indicates a missing event type.
	ErrTypeRequired = errors.New("event type is required")
	// ErrTypeUnknown indicates an unregistered event type.
	ErrTypeUnknown = errors.New("event type is not registered")
	// ErrAggregateTypeRequired indicates a missing aggregate type.
	ErrAggregateTypeRequired = errors.New("aggregate type is required")
	// ErrAggregateTypeMismatch indicates an event addressed to the wrong aggregate family.
	ErrAggregateTypeMismatch = errors.New("event aggregate type does not match its definition")
	// ErrAggregateIDRequired indicates a missing aggregate id.
	ErrAggregateIDRequired = errors.New("aggregate id is required")
	// ErrEventIDRequired indicates a missing event id.
	ErrEventIDRequired = errors.New("event id is required")
	// ErrSchemaVersionInvalid indicates a non-positive schema version.
	ErrSchemaVersionInvalid = errors.New("schema version must be positive")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for an event type.
type Definition struct {
	Type            Type
	AggregateType   string
	CurrentVersion  int
	ValidatePayload PayloadValidator
}

// Registry stores event definitions and validates events before append.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a new event type definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return ErrTypeRequired
	}
	def.AggregateType = strings.TrimSpace(def.AggregateType)
	if def.AggregateType == "" {
		return ErrAggregateTypeRequired
	}
	if def.CurrentVersion <= 0 {
		def.CurrentVersion = 1
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("event type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// ValidateForAppend validates and normalizes an event before persistence.
func (r *Registry) ValidateForAppend(evt Event) (Event, error) {
	evt.Type = Type(strings.TrimSpace(string(evt.Type)))
	if evt.Type == "" {
		return Event{}, ErrTypeRequired
	}
	def, ok := r.Definition(evt.Type)
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrTypeUnknown, evt.Type)
	}

	evt.AggregateType = strings.TrimSpace(evt.AggregateType)
	if evt.AggregateType == "" {
		return Event{}, ErrAggregateTypeRequired
	}
	if evt.AggregateType != def.AggregateType {
		return Event{}, ErrAggregateTypeMismatch
	}
	evt.AggregateID = strings.TrimSpace(evt.AggregateID)
	if evt.AggregateID == "" {
		return Event{}, ErrAggregateIDRequired
	}
	evt.EventID = strings.TrimSpace(evt.EventID)
	if evt.EventID == "" {
		return Event{}, ErrEventIDRequired
	}

	if evt.SchemaVersion == 0 {
		evt.SchemaVersion = def.CurrentVersion
	}
	if evt.SchemaVersion < 0 {
		return Event{}, ErrSchemaVersionInvalid
	}

	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = []byte("{}")
	}
	if !json.Valid(evt.PayloadJSON) {
		return Event{}, ErrPayloadInvalid
	}
	if len(evt.MetadataJSON) > 0 && !json.Valid(evt.MetadataJSON) {
		return Event{}, ErrPayloadInvalid
	}

	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(json.RawMessage(evt.PayloadJSON)); err != nil {
			return Event{}, fmt.Errorf("payload invalid: %w", err)
		}
	}
	return evt, nil
}

// Definition returns the event definition for a given type.
func (r *Registry) Definition(eventType Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	eventType = Type(strings.TrimSpace(string(eventType)))
	if eventType == "" {
		return Definition{}, false
	}
	def, ok := r.definitions[eventType]
	return def, ok
}

// CurrentVersion returns the registered schema version for an event type,
// defaulting to 1 for unknown types so upcasting never regresses a payload.
func (r *Registry) CurrentVersion(eventType Type) int {
	def, ok := r.Definition(eventType)
	if !ok {
		return 1
	}
	return def.CurrentVersion
}

// ListDefinitions returns a stable, sorted snapshot of registered definitions.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil || len(r.definitions) == 0 {
		return nil
	}
	definitions := make([]Definition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return string(definitions[i].Type) < string(definitions[j].Type)
	})
	return definitions
}
