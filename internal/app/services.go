// Package app assembles taskline's components and serves its HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/taskline/taskline/internal/bus"
	"github.com/taskline/taskline/internal/domain/board"
	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/decider"
	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/domain/report"
	"github.com/taskline/taskline/internal/domain/task"
	"github.com/taskline/taskline/internal/feed"
	"github.com/taskline/taskline/internal/runtime"
	"github.com/taskline/taskline/internal/storage/sqlite"
	"github.com/taskline/taskline/internal/upcast"
)

// Services bundles the wired components behind the HTTP surface.
type Services struct {
	Store    *sqlite.Store
	Bus      *bus.Bus
	Runtime  *runtime.Runtime
	Feed     *feed.Coordinator
	Commands *command.Registry
	Events   *event.Registry
	Logger   *log.Logger
}

// NewServices wires registries, storage, bus, runtime, and feed together.
func NewServices(dbPath string, logger *log.Logger) (*Services, error) {
	if logger == nil {
		logger = log.Default()
	}

	commands := command.NewRegistry()
	events := event.NewRegistry()
	upcasters := upcast.NewChain()
	for _, err := range []error{
		task.RegisterCommands(commands), task.RegisterEvents(events), task.RegisterUpcasters(upcasters),
		board.RegisterCommands(commands), board.RegisterEvents(events),
		report.RegisterCommands(commands), report.RegisterEvents(events),
	} {
		if err != nil {
			return nil, fmt.Errorf("register domain: %w", err)
		}
	}

	store, err := sqlite.Open(dbPath, events, sqlite.WithUpcasters(upcasters))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	router, err := decider.Compose(task.Decider(), board.Decider(), report.Decider())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("compose deciders: %w", err)
	}

	eventBus := bus.New(logger)
	rt, err := runtime.New(runtime.Config{
		Store:    store,
		Bus:      eventBus,
		Router:   router,
		Commands: commands,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("new runtime: %w", err)
	}
	if err := registerReportWork(rt, store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register report work: %w", err)
	}

	coordinator, err := feed.NewCoordinator(store, eventBus, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("new feed coordinator: %w", err)
	}

	return &Services{
		Store:    store,
		Bus:      eventBus,
		Runtime:  rt,
		Feed:     coordinator,
		Commands: commands,
		Events:   events,
		Logger:   logger,
	}, nil
}

// Close shuts down background work and releases storage.
func (s *Services) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Runtime != nil {
		if err := s.Runtime.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("runtime shutdown: %w", err))
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
