// Package decider defines the pure decision core of an aggregate type.
//
// A Decider pairs decide and evolve functions with an initial-state factory.
// All three are plain synchronous function values: their signatures carry no
// context, channel, or error side-channel, so suspension and I/O cannot be
// expressed inside them. Time is an explicit input precomputed by the caller.
package decider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/event"
)

// DecideFunc returns the decision for a command against current state.
type DecideFunc func(state any, cmd command.Command, now time.Time) command.Decision

// EvolveFunc folds an event into state and returns the next state.
type EvolveFunc func(state any, evt event.Event) any

// ReactFunc maps a produced event to follow-up commands for other aggregates.
// The mapping must stay pure; dispatch happens in the runtime.
type ReactFunc func(evt event.Event) []command.Command

// Decider encapsulates one aggregate type's domain logic.
type Decider struct {
	AggregateType string
	InitialState  func() any
	Decide        DecideFunc
	Evolve        EvolveFunc
	React         ReactFunc
}

// Replay folds an ordered event history into state starting from the
// initial state. Folding is total: unknown event types leave state unchanged
// inside Evolve, so replay never fails.
func (d Decider) Replay(events []event.Event) any {
	var state any
	if d.InitialState != nil {
		state = d.InitialState()
	}
	if d.Evolve == nil {
		return state
	}
	for _, evt := range events {
		state = d.Evolve(state, evt)
	}
	return state
}

// Router routes commands and events to the decider owning their aggregate type.
type Router struct {
	deciders map[string]Decider
}

// Compose combines deciders into a router keyed by aggregate type.
func Compose(deciders ...Decider) (*Router, error) {
	router := &Router{deciders: make(map[string]Decider, len(deciders))}
	for _, d := range deciders {
		aggregateType := strings.TrimSpace(d.AggregateType)
		if aggregateType == "" {
			return nil, errors.New("decider aggregate type is required")
		}
		if d.Decide == nil || d.Evolve == nil || d.InitialState == nil {
			return nil, fmt.Errorf("decider %s must define initial state, decide, and evolve", aggregateType)
		}
		if _, exists := router.deciders[aggregateType]; exists {
			return nil, fmt.Errorf("decider already registered for aggregate type: %s", aggregateType)
		}
		router.deciders[aggregateType] = d
	}
	return router, nil
}

// For returns the decider owning an aggregate type.
func (r *Router) For(aggregateType string) (Decider, bool) {
	if r == nil {
		return Decider{}, false
	}
	d, ok := r.deciders[strings.TrimSpace(aggregateType)]
	return d, ok
}

// React collects follow-up commands from every decider's reaction for the
// given event. Reactions observe events from any aggregate type, not only
// their own, so cross-aggregate sagas can be expressed.
func (r *Router) React(evt event.Event) []command.Command {
	if r == nil {
		return nil
	}
	var followUps []command.Command
	for _, aggregateType := range r.aggregateTypes() {
		d := r.deciders[aggregateType]
		if d.React == nil {
			continue
		}
		followUps = append(followUps, d.React(evt)...)
	}
	return followUps
}

func (r *Router) aggregateTypes() []string {
	types := make([]string, 0, len(r.deciders))
	for aggregateType := range r.deciders {
		types = append(types, aggregateType)
	}
	// Stable iteration keeps reaction dispatch deterministic.
	sort.Strings(types)
	return types
}
