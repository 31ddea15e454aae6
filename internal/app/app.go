package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/taskline/taskline/internal/platform/timeouts"
)

// Config holds the taskline service configuration.
type Config struct {
	Port   int    `env:"TASKLINE_PORT" envDefault:"8080"`
	Addr   string `env:"TASKLINE_ADDR"`
	DBPath string `env:"TASKLINE_DB_PATH" envDefault:"taskline.db"`
}

// ListenAddr resolves the listen address; Addr wins over Port.
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return fmt.Sprintf(":%d", c.Port)
}

// Run wires the service and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	services, err := NewServices(cfg.DBPath, nil)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := services.Close(closeCtx); err != nil {
			services.Logger.Printf("app: close: %v", err)
		}
	}()

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           services.NewMux(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		services.Logger.Printf("app: listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
