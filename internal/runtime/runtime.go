package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskline/taskline/internal/bus"
	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/decider"
	"github.com/taskline/taskline/internal/domain/event"
	apperrors "github.com/taskline/taskline/internal/platform/errors"
	"github.com/taskline/taskline/internal/platform/id"
	"github.com/taskline/taskline/internal/platform/timeouts"
	"github.com/taskline/taskline/internal/storage"
)

const (
	conflictMaxAttempts    = 5
	conflictRetryBaseDelay = 25 * time.Millisecond
)

// Work couples a trigger event type with a detached unit of work.
//
// Run starts only after the trigger event is committed. The commands it
// returns re-enter the pipeline as system commands; when Run fails or is
// cancelled, OnError supplies the terminal command recording that outcome so
// the unit never vanishes silently.
type Work struct {
	OnEvent event.Type
	Run     func(ctx context.Context, evt event.Event) ([]command.Command, error)
	OnError func(evt event.Event, cause error) command.Command
}

// Result is the synchronous outcome of executing a command.
type Result struct {
	CorrelationID string
	Events        []event.Event
	Rejections    []command.Rejection
}

// Rejected reports whether the command was declined by the decider.
func (r Result) Rejected() bool {
	return len(r.Rejections) > 0
}

// GlobalSeqs returns the global sequences assigned to the stored events.
func (r Result) GlobalSeqs() []uint64 {
	if len(r.Events) == 0 {
		return nil
	}
	seqs := make([]uint64, len(r.Events))
	for i, evt := range r.Events {
		seqs[i] = evt.GlobalSeq
	}
	return seqs
}

// Runtime wires the journal, the bus, and the pure domain core together.
type Runtime struct {
	store    storage.EventStore
	eventBus *bus.Bus
	router   *decider.Router
	commands *command.Registry
	workers  *Workers
	logger   *log.Logger
	tracer   trace.Tracer
	clock    func() time.Time

	work map[event.Type]Work
}

// Config carries the runtime's dependencies.
type Config struct {
	Store    storage.EventStore
	Bus      *bus.Bus
	Router   *decider.Router
	Commands *command.Registry
	Logger   *log.Logger
	// Clock overrides time.Now for deterministic tests.
	Clock func() time.Time
}

// New creates a runtime from its dependencies.
func New(cfg Config) (*Runtime, error) {
	if cfg.Store == nil {
		return nil, errors.New("event store is required")
	}
	if cfg.Bus == nil {
		return nil, errors.New("event bus is required")
	}
	if cfg.Router == nil {
		return nil, errors.New("decider router is required")
	}
	if cfg.Commands == nil {
		return nil, errors.New("command registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Runtime{
		store:    cfg.Store,
		eventBus: cfg.Bus,
		router:   cfg.Router,
		commands: cfg.Commands,
		workers:  NewWorkers(),
		logger:   logger,
		tracer:   otel.Tracer("taskline/runtime"),
		clock:    clock,
		work:     make(map[event.Type]Work),
	}, nil
}

// RegisterWork installs a detached work definition triggered by an event type.
func (r *Runtime) RegisterWork(work Work) error {
	if work.OnEvent == "" {
		return errors.New("work trigger event type is required")
	}
	if work.Run == nil {
		return errors.New("work run function is required")
	}
	if _, exists := r.work[work.OnEvent]; exists {
		return fmt.Errorf("work already registered for %s", work.OnEvent)
	}
	r.work[work.OnEvent] = work
	return nil
}

// Workers exposes the background work registry for cancellation and shutdown.
func (r *Runtime) Workers() *Workers {
	return r.workers
}

// Execute runs a command through load, decide, append, and publish.
//
// Rejections are part of the Result, not the error: a declined command is a
// successful execution with nothing stored. Errors carry structured codes so
// transports can map them without string matching.
func (r *Runtime) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	cmd, err := r.commands.ValidateForDecision(cmd)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "command validation failed", err)
	}
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = id.New()
	}

	ctx, span := r.tracer.Start(ctx, "runtime.Execute", trace.WithAttributes(
		attribute.String("command.type", string(cmd.Type)),
		attribute.String("aggregate.type", cmd.AggregateType),
		attribute.String("aggregate.id", cmd.AggregateID),
	))
	defer span.End()

	attempt := func() (Result, error) {
		result, err := r.attempt(ctx, cmd)
		if err == nil {
			return result, nil
		}
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			// Retryable: the next attempt reloads fresh state.
			return Result{}, err
		}
		return Result{}, backoff.Permanent(err)
	}

	var result Result
	if r.commands.ConflictPolicyFor(cmd.Type) == command.ConflictRetry {
		expo := backoff.NewExponentialBackOff()
		expo.InitialInterval = conflictRetryBaseDelay
		result, err = backoff.Retry(ctx, attempt,
			backoff.WithBackOff(expo),
			backoff.WithMaxTries(conflictMaxAttempts),
		)
	} else {
		result, err = r.attempt(ctx, cmd)
	}
	if err != nil {
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			return Result{}, apperrors.WithMetadata(apperrors.CodeVersionConflict, conflict.Error(), map[string]string{
				"aggregate_type":   conflict.AggregateType,
				"aggregate_id":     conflict.AggregateID,
				"expected_version": strconv.FormatUint(conflict.Expected, 10),
				"actual_version":   strconv.FormatUint(conflict.Actual, 10),
			})
		}
		return Result{}, err
	}

	r.afterCommit(result)
	return result, nil
}

// attempt performs one load-decide-append pass.
func (r *Runtime) attempt(ctx context.Context, cmd command.Command) (Result, error) {
	d, ok := r.router.For(cmd.AggregateType)
	if !ok {
		return Result{}, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("no decider for aggregate type %s", cmd.AggregateType))
	}

	history, err := r.store.LoadAggregate(ctx, cmd.AggregateType, cmd.AggregateID)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load aggregate", err)
	}
	state := d.Replay(history)
	var expectedVersion uint64
	if len(history) > 0 {
		expectedVersion = history[len(history)-1].AggregateSeq
	}

	decision := d.Decide(state, cmd, r.clock().UTC())
	if len(decision.Rejections) > 0 {
		return Result{CorrelationID: cmd.CorrelationID, Rejections: decision.Rejections}, nil
	}
	if len(decision.Events) == 0 {
		return Result{CorrelationID: cmd.CorrelationID}, nil
	}

	for i := range decision.Events {
		decision.Events[i].EventID = id.New()
	}

	stored, err := r.store.AppendEvents(ctx, cmd.AggregateType, cmd.AggregateID, expectedVersion, decision.Events)
	if err != nil {
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			return Result{}, err
		}
		return Result{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "append events", err)
	}

	return Result{CorrelationID: cmd.CorrelationID, Events: stored}, nil
}

// afterCommit publishes stored events, dispatches saga reactions, and starts
// detached work. Everything here is non-fatal to the already-durable command.
func (r *Runtime) afterCommit(result Result) {
	if len(result.Events) == 0 {
		return
	}
	r.eventBus.Publish(result.Events...)

	for _, evt := range result.Events {
		r.dispatchReactions(evt)
		r.startWork(evt)
	}
}

func (r *Runtime) dispatchReactions(evt event.Event) {
	for _, followUp := range r.router.React(evt) {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Command)
		reactionResult, err := r.Execute(ctx, followUp)
		cancel()
		if err != nil {
			r.logger.Printf("runtime: reaction %s for event %s failed: %v", followUp.Type, evt.EventID, err)
			continue
		}
		if reactionResult.Rejected() {
			r.logger.Printf("runtime: reaction %s for event %s rejected: %s",
				followUp.Type, evt.EventID, reactionResult.Rejections[0].Code)
		}
	}
}

func (r *Runtime) startWork(evt event.Event) {
	work, ok := r.work[evt.Type]
	if !ok {
		return
	}
	started := r.workers.Start(evt.CorrelationID, func(ctx context.Context) {
		followUps, err := work.Run(ctx, evt)
		if err != nil {
			if work.OnError == nil {
				r.logger.Printf("runtime: work for %s (%s) failed without terminal command: %v", evt.Type, evt.CorrelationID, err)
				return
			}
			// The unit's own context may already be cancelled; the terminal
			// command still has to land.
			terminalCtx, cancel := context.WithTimeout(context.Background(), timeouts.Command)
			defer cancel()
			r.submitDetached(terminalCtx, work.OnError(evt, err))
			return
		}
		for _, followUp := range followUps {
			submitCtx, cancel := context.WithTimeout(context.Background(), timeouts.Command)
			r.submitDetached(submitCtx, followUp)
			cancel()
		}
	})
	if !started {
		r.logger.Printf("runtime: work for %s (%s) not started; unit already tracked or shutting down", evt.Type, evt.CorrelationID)
	}
}

func (r *Runtime) submitDetached(ctx context.Context, cmd command.Command) {
	result, err := r.Execute(ctx, cmd)
	if err != nil {
		r.logger.Printf("runtime: detached command %s failed: %v", cmd.Type, err)
		return
	}
	if result.Rejected() {
		r.logger.Printf("runtime: detached command %s rejected: %s", cmd.Type, result.Rejections[0].Code)
	}
}

// Shutdown cancels detached work and waits for it to drain.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.workers.Shutdown(ctx)
}
