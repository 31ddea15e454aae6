package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAggregateTypeRequired indicates a missing aggregate type.
	ErrAggregateTypeRequired = errors.New("aggregate type is required")
	// ErrAggregateIDRequired indicates a missing aggregate id.
	ErrAggregateIDRequired = errors.New("aggregate id is required")
	// ErrTypeRequired indicates a missing command type.
	ErrTypeRequired = errors.New("command type is required")
	// ErrTypeUnknown indicates an unregistered command type.
	ErrTypeUnknown = errors.New("command type is not registered")
	// ErrAggregateTypeMismatch indicates a command addressed to the wrong aggregate family.
	ErrAggregateTypeMismatch = errors.New("command aggregate type does not match its definition")
	// ErrActorTypeInvalid indicates an unknown actor type.
	ErrActorTypeInvalid = errors.New("actor type is invalid")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// Type identifies the command type string.
type Type string

// ActorType identifies the actor who initiated the command.
type ActorType string

const (
	// ActorTypeSystem indicates a system-originated command.
	ActorTypeSystem ActorType = "system"
	// ActorTypeUser indicates a user-originated command.
	ActorTypeUser ActorType = "user"
)

// ConflictPolicy declares how a command class responds to an optimistic-lock
// conflict on append.
type ConflictPolicy string

const (
	// ConflictFailFast surfaces the conflict to the caller immediately.
	// Default for user-initiated commands so the caller can refresh state.
	ConflictFailFast ConflictPolicy = "fail_fast"
	// ConflictRetry reloads fresh state and retries with bounded backoff.
	// Default for idempotent system-originated commands.
	ConflictRetry ConflictPolicy = "retry"
)

// Command captures the canonical command envelope.
type Command struct {
	AggregateType string
	AggregateID   string
	Type          Type
	ActorType     ActorType
	RequestID     string
	CorrelationID string
	CausationID   string
	PayloadJSON   []byte
}

// Definition registers metadata for a command type.
type Definition struct {
	Type            Type
	AggregateType   string
	Conflict        ConflictPolicy
	ValidatePayload PayloadValidator
}

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Registry stores command definitions and validates commands.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a new command type definition to the registry.
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
	switch def.Conflict {
	case ConflictFailFast, ConflictRetry:
		// allowed
	case "":
		def.Conflict = ConflictFailFast
	default:
		return fmt.Errorf("conflict policy must be fail_fast or retry")
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("command type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// ValidateForDecision validates and normalizes a command before decision handling.
func (r *Registry) ValidateForDecision(cmd Command) (Command, error) {
	cmd.Type = Type(strings.TrimSpace(string(cmd.Type)))
	if cmd.Type == "" {
		return Command{}, ErrTypeRequired
	}
	def, ok := r.Definition(cmd.Type)
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrTypeUnknown, cmd.Type)
	}

	cmd.AggregateType = strings.TrimSpace(cmd.AggregateType)
	if cmd.AggregateType == "" {
		cmd.AggregateType = def.AggregateType
	}
	if cmd.AggregateType != def.AggregateType {
		return Command{}, ErrAggregateTypeMismatch
	}
	cmd.AggregateID = strings.TrimSpace(cmd.AggregateID)
	if cmd.AggregateID == "" {
		return Command{}, ErrAggregateIDRequired
	}

	cmd.ActorType = ActorType(strings.TrimSpace(string(cmd.ActorType)))
	if cmd.ActorType == "" {
		cmd.ActorType = ActorTypeSystem
	}
	switch cmd.ActorType {
	case ActorTypeSystem, ActorTypeUser:
		// allowed
	default:
		return Command{}, ErrActorTypeInvalid
	}

	if len(cmd.PayloadJSON) == 0 {
		cmd.PayloadJSON = []byte("{}")
	}
	if !json.Valid(cmd.PayloadJSON) {
		return Command{}, ErrPayloadInvalid
	}
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(json.RawMessage(cmd.PayloadJSON)); err != nil {
			return Command{}, fmt.Errorf("payload invalid: %w", err)
		}
	}
	return cmd, nil
}

// Definition returns the command definition for a given type.
func (r *Registry) Definition(cmdType Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	cmdType = Type(strings.TrimSpace(string(cmdType)))
	if cmdType == "" {
		return Definition{}, false
	}
	def, ok := r.definitions[cmdType]
	return def, ok
}

// ConflictPolicyFor returns the conflict policy for a command type,
// defaulting to fail-fast for unknown types.
func (r *Registry) ConflictPolicyFor(cmdType Type) ConflictPolicy {
	def, ok := r.Definition(cmdType)
	if !ok {
		return ConflictFailFast
	}
	return def.Conflict
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
