package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	services, err := NewServices(filepath.Join(t.TempDir(), "events.db"), nil)
	if err != nil {
		t.Fatalf("new services: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = services.Close(ctx)
	})

	server := httptest.NewServer(services.NewMux())
	t.Cleanup(server.Close)
	return server
}

func postCommand(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+"/v1/commands", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post command: %v", err)
	}
	return resp
}

func TestCommandEndpointAcceptsAndSequences(t *testing.T) {
	server := newTestServer(t)

	resp := postCommand(t, server, `{
		"aggregate_type": "task",
		"aggregate_id": "task-1",
		"type": "task.create",
		"payload": {"title": "Write docs"}
	}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var ack commandResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ack.CorrelationID == "" {
		t.Fatal("expected correlation id")
	}
	if len(ack.GlobalSeqs) != 1 || ack.GlobalSeqs[0] == 0 {
		t.Fatalf("global seqs = %v, want one nonzero", ack.GlobalSeqs)
	}
}

func TestCommandEndpointRejectionIs422(t *testing.T) {
	server := newTestServer(t)

	resp := postCommand(t, server, `{
		"aggregate_type": "task",
		"aggregate_id": "task-1",
		"type": "task.create",
		"payload": {"title": "   "}
	}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Code != "TASK_TITLE_REQUIRED" {
		t.Fatalf("rejection code = %s, want TASK_TITLE_REQUIRED", body.Code)
	}
}

func TestCommandEndpointUnknownTypeIs400(t *testing.T) {
	server := newTestServer(t)

	resp := postCommand(t, server, `{
		"aggregate_type": "task",
		"aggregate_id": "task-1",
		"type": "task.levitate"
	}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCommandEndpointMalformedBodyIs400(t *testing.T) {
	server := newTestServer(t)

	resp := postCommand(t, server, `{"aggregate_type": `)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestFeedDeliversCommandEvents(t *testing.T) {
	server := newTestServer(t)

	resp := postCommand(t, server, `{
		"aggregate_type": "task",
		"aggregate_id": "task-1",
		"type": "task.create",
		"payload": {"title": "Write docs"}
	}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	feedResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	defer feedResp.Body.Close()

	scanner := bufio.NewScanner(feedResp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			if got := strings.TrimPrefix(line, "event: "); got != "task.created" {
				t.Fatalf("first feed event = %s, want task.created", got)
			}
			return
		}
	}
	t.Fatal("no event frame received")
}
