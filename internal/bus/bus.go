// Package bus fans persisted events out to filtered subscribers.
//
// The bus is a post-commit notification channel, not a store: delivery to a
// live subscriber is at-most-once, and a subscriber that misses an event
// recovers by replaying the journal from its last-seen global sequence. The
// journal is the durability boundary; the bus never buffers beyond each
// subscriber's own bounded channel.
package bus

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/platform/id"
)

const defaultBufferSize = 64

// OverflowPolicy selects what happens when a subscriber's buffer is full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest buffered event to make room. Suited to
	// feeds whose consumers recover missed events via journal replay.
	DropOldest OverflowPolicy = iota
	// Block makes the publisher wait for buffer space. Suited to
	// administrative consumers that require every delivery, at the cost of
	// backpressure on the publishing side.
	Block
)

// Subscription is one subscriber's filtered view of the event flow.
type Subscription struct {
	id       string
	patterns []string
	policy   OverflowPolicy
	events   chan event.Event
	done     chan struct{}
	closeFn  func()
	once     sync.Once
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string { return s.id }

// Events returns the channel delivering matched events.
func (s *Subscription) Events() <-chan event.Event { return s.events }

// Done is closed when the subscription is no longer serviced.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close detaches the subscription from the bus and releases its buffer.
// Safe to call multiple times and from any goroutine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

// Bus routes events to subscriptions whose patterns match the event topic.
type Bus struct {
	logger *log.Logger

	mu            sync.RWMutex
	subscriptions map[string]*Subscription
}

// New creates an empty bus. A nil logger falls back to the default logger.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{
		logger:        logger,
		subscriptions: make(map[string]*Subscription),
	}
}

// Subscribe registers a filtered subscription. bufferSize caps the
// subscriber's channel; zero selects the bus default. The returned
// subscription must be closed when the consumer goes away, or its slot leaks.
func (b *Bus) Subscribe(patterns []string, bufferSize int, policy OverflowPolicy) (*Subscription, error) {
	if b == nil {
		return nil, errors.New("bus is required")
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: at least one pattern is required", ErrPatternInvalid)
	}
	for _, pattern := range patterns {
		if err := ValidatePattern(pattern); err != nil {
			return nil, err
		}
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if policy != DropOldest && policy != Block {
		return nil, fmt.Errorf("unknown overflow policy: %d", policy)
	}

	sub := &Subscription{
		id:       id.New(),
		patterns: append([]string(nil), patterns...),
		policy:   policy,
		events:   make(chan event.Event, bufferSize),
		done:     make(chan struct{}),
	}
	sub.closeFn = func() { b.remove(sub.id) }

	b.mu.Lock()
	b.subscriptions[sub.id] = sub
	b.mu.Unlock()

	return sub, nil
}

func (b *Bus) remove(subID string) {
	b.mu.Lock()
	delete(b.subscriptions, subID)
	b.mu.Unlock()
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// Publish delivers events to every subscription with a matching pattern.
//
// Drop-oldest subscribers never delay the publisher; blocking subscribers
// are serviced last so their backpressure cannot starve the others.
func (b *Bus) Publish(events ...event.Event) {
	if b == nil || len(events) == 0 {
		return
	}

	b.mu.RLock()
	snapshot := make([]*Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	for _, evt := range events {
		topic := evt.Topic()
		var blocking []*Subscription
		for _, sub := range snapshot {
			if !matchAny(sub.patterns, topic) {
				continue
			}
			if sub.policy == Block {
				blocking = append(blocking, sub)
				continue
			}
			b.deliverDropOldest(sub, evt)
		}
		for _, sub := range blocking {
			b.deliverBlocking(sub, evt)
		}
	}
}

func (b *Bus) deliverDropOldest(sub *Subscription, evt event.Event) {
	select {
	case <-sub.done:
		return
	default:
	}
	select {
	case sub.events <- evt:
		return
	default:
	}
	// Full buffer: evict the oldest entry and retry once.
	select {
	case dropped := <-sub.events:
		b.logger.Printf("bus: dropped event seq=%d for slow subscriber %s", dropped.GlobalSeq, sub.id)
	default:
	}
	select {
	case sub.events <- evt:
	default:
		// A concurrent publisher refilled the buffer between eviction and
		// retry. The new event is lost too; subscribers recover by replay.
		b.logger.Printf("bus: dropped event seq=%d for slow subscriber %s", evt.GlobalSeq, sub.id)
	}
}

func (b *Bus) deliverBlocking(sub *Subscription, evt event.Event) {
	select {
	case sub.events <- evt:
	case <-sub.done:
	}
}

func matchAny(patterns []string, topic string) bool {
	for _, pattern := range patterns {
		if MatchTopic(pattern, topic) {
			return true
		}
	}
	return false
}
