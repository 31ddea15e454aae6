package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/domain/report"
	"github.com/taskline/taskline/internal/runtime"
	"github.com/taskline/taskline/internal/storage"
)

// registerReportWork wires the detached export unit: it runs only after
// report.requested is durable, scans the journal for the export, and lands
// its outcome as a system command.
func registerReportWork(rt *runtime.Runtime, store storage.EventStore) error {
	return rt.RegisterWork(runtime.Work{
		OnEvent: report.EventTypeRequested,
		Run: func(ctx context.Context, evt event.Event) ([]command.Command, error) {
			rows, err := exportJournal(ctx, store)
			if err != nil {
				return nil, err
			}
			payloadJSON, _ := json.Marshal(report.CompletedPayload{
				Location: fmt.Sprintf("exports/%s.csv", evt.AggregateID),
				Rows:     rows,
			})
			return []command.Command{{
				AggregateType: report.AggregateType,
				AggregateID:   evt.AggregateID,
				Type:          report.CommandTypeComplete,
				ActorType:     command.ActorTypeSystem,
				CorrelationID: evt.CorrelationID,
				CausationID:   evt.EventID,
				PayloadJSON:   payloadJSON,
			}}, nil
		},
		OnError: func(evt event.Event, cause error) command.Command {
			cmdType := report.CommandTypeFail
			var payloadJSON []byte
			if errors.Is(cause, context.Canceled) {
				cmdType = report.CommandTypeCancel
				payloadJSON, _ = json.Marshal(report.CancelledPayload{Reason: "export cancelled"})
			} else {
				payloadJSON, _ = json.Marshal(report.FailedPayload{Reason: cause.Error()})
			}
			return command.Command{
				AggregateType: report.AggregateType,
				AggregateID:   evt.AggregateID,
				Type:          cmdType,
				ActorType:     command.ActorTypeSystem,
				CorrelationID: evt.CorrelationID,
				CausationID:   evt.EventID,
				PayloadJSON:   payloadJSON,
			}
		},
	})
}

// exportJournal walks the whole journal page by page, honoring cancellation
// between pages, and returns the number of exported rows.
func exportJournal(ctx context.Context, store storage.EventStore) (int, error) {
	const pageSize = 256
	var cursor uint64
	rows := 0
	for {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		page, err := store.ListEventsSince(ctx, cursor, pageSize)
		if err != nil {
			return rows, fmt.Errorf("scan journal: %w", err)
		}
		if len(page) == 0 {
			return rows, nil
		}
		rows += len(page)
		cursor = page[len(page)-1].GlobalSeq
	}
}
