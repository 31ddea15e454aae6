package upcast

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/taskline/taskline/internal/domain/event"
)

func TestApplyBridgesTwoGenerations(t *testing.T) {
	chain := NewChain()

	// v1 -> v2: rename "text" to "title".
	if err := chain.Register(event.Type("task.created"), 1, func(payload []byte) ([]byte, error) {
		var v1 struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(payload, &v1); err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Title string `json:"title"`
		}{Title: v1.Text})
	}); err != nil {
		t.Fatalf("register v1 upcaster: %v", err)
	}

	// v2 -> v3: add empty notes.
	if err := chain.Register(event.Type("task.created"), 2, func(payload []byte) ([]byte, error) {
		var v2 struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(payload, &v2); err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Title string `json:"title"`
			Notes string `json:"notes"`
		}{Title: v2.Title})
	}); err != nil {
		t.Fatalf("register v2 upcaster: %v", err)
	}

	migrated, err := chain.Apply(event.Event{
		Type:          event.Type("task.created"),
		SchemaVersion: 1,
		PayloadJSON:   []byte(`{"text":"buy milk"}`),
	}, 3)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if migrated.SchemaVersion != 3 {
		t.Fatalf("schema version = %d, want 3", migrated.SchemaVersion)
	}

	var payload struct {
		Title string `json:"title"`
		Notes string `json:"notes"`
	}
	if err := json.Unmarshal(migrated.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal migrated payload: %v", err)
	}
	if payload.Title != "buy milk" {
		t.Fatalf("title = %s, want buy milk", payload.Title)
	}
}

func TestApplyPassesThroughCurrentVersion(t *testing.T) {
	chain := NewChain()
	original := event.Event{
		Type:          event.Type("task.created"),
		SchemaVersion: 2,
		PayloadJSON:   []byte(`{"title":"x"}`),
	}

	migrated, err := chain.Apply(original, 2)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(migrated.PayloadJSON) != `{"title":"x"}` {
		t.Fatalf("payload changed: %s", migrated.PayloadJSON)
	}
}

func TestApplyErrorsOnVersionGap(t *testing.T) {
	chain := NewChain()

	_, err := chain.Apply(event.Event{
		Type:          event.Type("task.created"),
		SchemaVersion: 1,
	}, 2)
	if !errors.Is(err, ErrVersionGap) {
		t.Fatalf("expected ErrVersionGap, got %v", err)
	}
}

func TestRegisterRejectsDuplicateStep(t *testing.T) {
	chain := NewChain()
	identity := func(payload []byte) ([]byte, error) { return payload, nil }

	if err := chain.Register(event.Type("task.created"), 1, identity); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := chain.Register(event.Type("task.created"), 1, identity); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestApplyAllUsesRegistryVersions(t *testing.T) {
	registry := event.NewRegistry()
	if err := registry.Register(event.Definition{
		Type:           event.Type("task.created"),
		AggregateType:  "task",
		CurrentVersion: 2,
	}); err != nil {
		t.Fatalf("register event: %v", err)
	}

	chain := NewChain()
	if err := chain.Register(event.Type("task.created"), 1, func(payload []byte) ([]byte, error) {
		var v1 struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(payload, &v1); err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Title string `json:"title"`
		}{Title: v1.Text})
	}); err != nil {
		t.Fatalf("register upcaster: %v", err)
	}

	events := []event.Event{
		{Type: event.Type("task.created"), SchemaVersion: 1, PayloadJSON: []byte(`{"text":"old"}`)},
		{Type: event.Type("task.created"), SchemaVersion: 2, PayloadJSON: []byte(`{"title":"new"}`)},
	}

	migrated, err := chain.ApplyAll(events, registry)
	if err != nil {
		t.Fatalf("apply all: %v", err)
	}
	for i, evt := range migrated {
		if evt.SchemaVersion != 2 {
			t.Fatalf("event %d schema version = %d, want 2", i, evt.SchemaVersion)
		}
	}
}
