// Command taskline-admin provides maintenance access to the event journal.
//
// Usage:
//
//	taskline-admin -db taskline.db tail [-n 20]
//	taskline-admin -db taskline.db purge
//
// purge removes every stored event and exists for test environments only;
// production journals are immutable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/taskline/taskline/internal/domain/board"
	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/domain/report"
	"github.com/taskline/taskline/internal/domain/task"
	"github.com/taskline/taskline/internal/platform/config"
	"github.com/taskline/taskline/internal/storage/sqlite"
	"github.com/taskline/taskline/internal/upcast"
)

func main() {
	dbPath := flag.String("db", "taskline.db", "Path to the SQLite event journal")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		config.Exitf("usage: taskline-admin [-db path] <tail|purge> [args]")
	}

	store, err := openStore(*dbPath)
	if err != nil {
		config.Exitf("open journal: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	switch args[0] {
	case "tail":
		if err := tail(ctx, store, args[1:]); err != nil {
			config.Exitf("tail: %v", err)
		}
	case "purge":
		if err := store.PurgeAll(ctx); err != nil {
			config.Exitf("purge: %v", err)
		}
		fmt.Println("journal purged")
	default:
		config.Exitf("unknown command %q", args[0])
	}
}

func openStore(path string) (*sqlite.Store, error) {
	events := event.NewRegistry()
	upcasters := upcast.NewChain()
	for _, err := range []error{
		task.RegisterEvents(events), task.RegisterUpcasters(upcasters),
		board.RegisterEvents(events),
		report.RegisterEvents(events),
	} {
		if err != nil {
			return nil, err
		}
	}
	return sqlite.Open(path, events, sqlite.WithUpcasters(upcasters))
}

func tail(ctx context.Context, store *sqlite.Store, args []string) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	count := fs.Int("n", 20, "Number of trailing events to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	latest, err := store.LatestSeq(ctx)
	if err != nil {
		return err
	}
	var after uint64
	if latest > uint64(*count) {
		after = latest - uint64(*count)
	}
	events, err := store.ListEventsSince(ctx, after, *count)
	if err != nil {
		return err
	}
	for _, evt := range events {
		fmt.Fprintf(os.Stdout, "%d\t%s\t%s/%s\t%s\n",
			evt.GlobalSeq, evt.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			evt.AggregateType, evt.AggregateID, evt.Type)
	}
	return nil
}
