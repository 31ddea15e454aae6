package runtime

import (
	"context"
	"strings"
	"sync"
)

// Workers tracks detached background units of work keyed by correlation id.
//
// Each unit gets a context derived from the registry root, so a single
// shutdown cancels everything, while Cancel reaches one unit without
// disturbing the rest.
type Workers struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	units map[string]context.CancelFunc
	wg    sync.WaitGroup
}

// NewWorkers creates an empty background work registry.
func NewWorkers() *Workers {
	ctx, cancel := context.WithCancel(context.Background())
	return &Workers{
		ctx:    ctx,
		cancel: cancel,
		units:  make(map[string]context.CancelFunc),
	}
}

// Start launches fn as a detached unit tracked by correlation id. It returns
// false when a unit with the same id is already running or the registry is
// shut down.
func (w *Workers) Start(correlationID string, fn func(ctx context.Context)) bool {
	if w == nil || fn == nil {
		return false
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return false
	}
	if w.ctx.Err() != nil {
		return false
	}

	w.mu.Lock()
	if _, exists := w.units[correlationID]; exists {
		w.mu.Unlock()
		return false
	}
	unitCtx, unitCancel := context.WithCancel(w.ctx)
	w.units[correlationID] = unitCancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer w.release(correlationID)
		fn(unitCtx)
	}()
	return true
}

// Cancel cancels the unit tracked by correlation id, reporting whether one
// was running.
func (w *Workers) Cancel(correlationID string) bool {
	if w == nil {
		return false
	}
	correlationID = strings.TrimSpace(correlationID)

	w.mu.Lock()
	cancel, exists := w.units[correlationID]
	w.mu.Unlock()
	if exists {
		cancel()
	}
	return exists
}

// Running reports whether a unit is tracked for the correlation id.
func (w *Workers) Running(correlationID string) bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, exists := w.units[strings.TrimSpace(correlationID)]
	return exists
}

func (w *Workers) release(correlationID string) {
	w.mu.Lock()
	if cancel, exists := w.units[correlationID]; exists {
		delete(w.units, correlationID)
		cancel()
	}
	w.mu.Unlock()
}

// Shutdown cancels every unit and waits for them to finish or for ctx to
// expire.
func (w *Workers) Shutdown(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
