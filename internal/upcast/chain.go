// Package upcast migrates stored event payloads across schema generations.
//
// Upcasters run lazily while events are loaded or queried; stored rows are
// never rewritten. Each step bridges exactly one generation, and the chain
// walks steps in registration order until the target version is reached.
package upcast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskline/taskline/internal/domain/event"
)

var (
	// ErrTransformRequired indicates a nil transform function.
	ErrTransformRequired = errors.New("upcaster transform is required")
	// ErrVersionGap indicates no upcaster bridges a stored schema version.
	ErrVersionGap = errors.New("no upcaster registered for schema version")
)

// Transform converts a payload from one schema generation to the next.
// It must be pure: identical payloads always produce identical output.
type Transform func(payload []byte) ([]byte, error)

type step struct {
	eventType   event.Type
	fromVersion int
	transform   Transform
}

// Chain holds registered upcasters in registration order.
type Chain struct {
	steps []step
}

// NewChain creates an empty upcaster chain.
func NewChain() *Chain {
	return &Chain{}
}

// Register adds an upcaster handling (eventType, fromVersion). Multiple
// upcasters may be chained to bridge several schema generations.
func (c *Chain) Register(eventType event.Type, fromVersion int, transform Transform) error {
	if c == nil {
		return errors.New("chain is required")
	}
	eventType = event.Type(strings.TrimSpace(string(eventType)))
	if eventType == "" {
		return event.ErrTypeRequired
	}
	if fromVersion <= 0 {
		return fmt.Errorf("from version must be positive, got %d", fromVersion)
	}
	if transform == nil {
		return ErrTransformRequired
	}
	for _, existing := range c.steps {
		if existing.eventType == eventType && existing.fromVersion == fromVersion {
			return fmt.Errorf("upcaster already registered for %s v%d", eventType, fromVersion)
		}
	}
	c.steps = append(c.steps, step{eventType: eventType, fromVersion: fromVersion, transform: transform})
	return nil
}

// Apply upcasts an event payload until targetVersion is reached. Events at or
// above the target pass through untouched.
func (c *Chain) Apply(evt event.Event, targetVersion int) (event.Event, error) {
	if targetVersion <= 0 {
		return evt, nil
	}
	for evt.SchemaVersion < targetVersion {
		matched, ok := c.match(evt.Type, evt.SchemaVersion)
		if !ok {
			return event.Event{}, fmt.Errorf("%w: %s v%d", ErrVersionGap, evt.Type, evt.SchemaVersion)
		}
		payload, err := matched.transform(evt.PayloadJSON)
		if err != nil {
			return event.Event{}, fmt.Errorf("upcast %s v%d: %w", evt.Type, evt.SchemaVersion, err)
		}
		evt.PayloadJSON = payload
		evt.SchemaVersion++
	}
	return evt, nil
}

// ApplyAll upcasts a slice of events against the registry's current versions.
func (c *Chain) ApplyAll(events []event.Event, registry *event.Registry) ([]event.Event, error) {
	if c == nil || len(events) == 0 {
		return events, nil
	}
	upcast := make([]event.Event, 0, len(events))
	for _, evt := range events {
		target := 1
		if registry != nil {
			target = registry.CurrentVersion(evt.Type)
		}
		migrated, err := c.Apply(evt, target)
		if err != nil {
			return nil, err
		}
		upcast = append(upcast, migrated)
	}
	return upcast, nil
}

func (c *Chain) match(eventType event.Type, version int) (step, bool) {
	if c == nil {
		return step{}, false
	}
	for _, candidate := range c.steps {
		if candidate.eventType == eventType && candidate.fromVersion == version {
			return candidate, true
		}
	}
	return step{}, false
}
