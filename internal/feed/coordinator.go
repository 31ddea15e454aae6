// Package feed streams the event journal to clients over SSE.
//
// A connection walks a fixed state machine: subscribe on the bus first, then
// replay the journal from the client's cursor, then drain the live
// subscription. Subscribing before replaying closes the race in which an
// event commits after replay finishes but before the subscription opens;
// such an event would otherwise be lost to the client forever.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/taskline/taskline/internal/bus"
	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/storage"
)

// Phase labels a connection's position in the state machine.
type Phase string

const (
	PhaseConnecting Phase = "connecting"
	PhaseSubscribed Phase = "subscribed"
	PhaseReplaying  Phase = "replaying"
	PhaseStreaming  Phase = "streaming"
	PhaseClosed     Phase = "closed"
)

const (
	replayPageSize  = 256
	liveBufferSize  = 256
	feedTopicFilter = "events/#"
)

// Coordinator replays and streams events for feed connections.
type Coordinator struct {
	store  storage.EventStore
	events *bus.Bus
	logger *log.Logger

	// transitionHook observes phase changes; used by tests to interleave
	// appends with specific machine states.
	transitionHook func(Phase)
}

// NewCoordinator creates a feed coordinator.
func NewCoordinator(store storage.EventStore, events *bus.Bus, logger *log.Logger) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("event store is required")
	}
	if events == nil {
		return nil, errors.New("event bus is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{store: store, events: events, logger: logger}, nil
}

// Sink receives the ordered event flow for one connection.
type Sink interface {
	// Send delivers one event. Returning an error closes the connection.
	Send(evt event.Event) error
	// Keepalive delivers a no-op frame; it does not move the cursor.
	Keepalive() error
}

// Stream drives one connection from the client's last-seen global sequence.
//
// Events are delivered in ascending global-sequence order exactly once per
// connection: the live subscription is deduplicated against the replay
// cursor, and a gap in the live flow (dropped by the subscriber's bounded
// buffer) is healed by reading the journal. Returns nil on client disconnect.
func (c *Coordinator) Stream(ctx context.Context, afterSeq uint64, keepalive <-chan time.Time, sink Sink) error {
	if sink == nil {
		return errors.New("sink is required")
	}
	c.transition(PhaseConnecting)

	sub, err := c.events.Subscribe([]string{feedTopicFilter}, liveBufferSize, bus.DropOldest)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()
	defer c.transition(PhaseClosed)
	c.transition(PhaseSubscribed)

	c.transition(PhaseReplaying)
	cursor, err := c.replay(ctx, afterSeq, sink)
	if err != nil {
		return err
	}

	c.transition(PhaseStreaming)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keepalive:
			if err := sink.Keepalive(); err != nil {
				return fmt.Errorf("keepalive: %w", err)
			}
		case evt := <-sub.Events():
			if evt.GlobalSeq <= cursor {
				// Committed during replay and already delivered from the journal.
				continue
			}
			if evt.GlobalSeq > cursor+1 {
				// The bounded buffer dropped events; heal from the journal.
				cursor, err = c.replay(ctx, cursor, sink)
				if err != nil {
					return err
				}
				if evt.GlobalSeq <= cursor {
					continue
				}
			}
			if err := sink.Send(evt); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			cursor = evt.GlobalSeq
		}
	}
}

// replay pages the journal from afterSeq and returns the new cursor.
func (c *Coordinator) replay(ctx context.Context, afterSeq uint64, sink Sink) (uint64, error) {
	cursor := afterSeq
	for {
		if err := ctx.Err(); err != nil {
			return cursor, nil
		}
		page, err := c.store.ListEventsSince(ctx, cursor, replayPageSize)
		if err != nil {
			return cursor, fmt.Errorf("replay from %d: %w", cursor, err)
		}
		if len(page) == 0 {
			return cursor, nil
		}
		for _, evt := range page {
			if err := sink.Send(evt); err != nil {
				return cursor, fmt.Errorf("send: %w", err)
			}
			cursor = evt.GlobalSeq
		}
	}
}

func (c *Coordinator) transition(phase Phase) {
	if c.transitionHook != nil {
		c.transitionHook(phase)
	}
}
