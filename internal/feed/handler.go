package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/platform/timeouts"
)

// envelope is the wire shape of one feed event.
type envelope struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateSeq  uint64          `json:"aggregate_seq"`
	GlobalSeq     uint64          `json:"global_seq"`
	EventType     string          `json:"event_type"`
	SchemaVersion int             `json:"schema_version"`
	Timestamp     time.Time       `json:"timestamp"`
	ActorType     string          `json:"actor_type"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func toEnvelope(evt event.Event) envelope {
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return envelope{
		EventID:       evt.EventID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		AggregateSeq:  evt.AggregateSeq,
		GlobalSeq:     evt.GlobalSeq,
		EventType:     string(evt.Type),
		SchemaVersion: evt.SchemaVersion,
		Timestamp:     evt.Timestamp,
		ActorType:     string(evt.ActorType),
		CorrelationID: evt.CorrelationID,
		CausationID:   evt.CausationID,
		Payload:       json.RawMessage(payload),
	}
}

// sseSink writes SSE frames to an HTTP response. Each event frame carries
// the global sequence as its id so clients resume from the last frame seen.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(evt event.Event) error {
	data, err := json.Marshal(toEnvelope(evt))
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", evt.GlobalSeq, evt.Type, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Keepalive() error {
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Handler serves the event feed as a text/event-stream response.
//
// The resumption cursor comes from the Last-Event-ID header when the client
// reconnects, or from the after query parameter on first connect.
func (c *Coordinator) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		afterSeq, err := resumeCursor(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ticker := time.NewTicker(timeouts.FeedKeepalive)
		defer ticker.Stop()

		sink := &sseSink{w: w, flusher: flusher}
		if err := c.Stream(r.Context(), afterSeq, ticker.C, sink); err != nil {
			// The response is already streaming; all we can do is log.
			c.logger.Printf("feed: connection ended: %v", err)
		}
	})
}

func resumeCursor(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(r.Header.Get("Last-Event-ID"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("after"))
	}
	if raw == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cursor must be a global sequence number: %q", raw)
	}
	return seq, nil
}
