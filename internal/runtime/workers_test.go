package runtime

import (
	"context"
	"testing"
	"time"
)

func TestWorkersStartAndCancel(t *testing.T) {
	workers := NewWorkers()

	done := make(chan struct{})
	started := workers.Start("corr-1", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	if !started {
		t.Fatal("expected unit to start")
	}
	if !workers.Running("corr-1") {
		t.Fatal("expected unit to be tracked")
	}

	// A second unit under the same correlation id is refused.
	if workers.Start("corr-1", func(ctx context.Context) {}) {
		t.Fatal("expected duplicate correlation id to be refused")
	}

	if !workers.Cancel("corr-1") {
		t.Fatal("expected cancel to find the unit")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unit never observed cancellation")
	}

	deadline := time.Now().Add(2 * time.Second)
	for workers.Running("corr-1") {
		if time.Now().After(deadline) {
			t.Fatal("unit still tracked after cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if workers.Cancel("corr-1") {
		t.Fatal("expected cancel of finished unit to report false")
	}
}

func TestWorkersShutdownDrains(t *testing.T) {
	workers := NewWorkers()

	for _, id := range []string{"corr-1", "corr-2"} {
		workers.Start(id, func(ctx context.Context) {
			<-ctx.Done()
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := workers.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if workers.Start("corr-3", func(ctx context.Context) {}) {
		t.Fatal("expected start after shutdown to be refused")
	}
}

func TestWorkersShutdownTimeout(t *testing.T) {
	workers := NewWorkers()

	release := make(chan struct{})
	workers.Start("corr-1", func(ctx context.Context) {
		<-release
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := workers.Shutdown(ctx); err == nil {
		t.Fatal("expected shutdown to time out on stuck unit")
	}
	close(release)
}
