package task

import (
	"reflect"
	"testing"

	"github.com/taskline/taskline/internal/domain/event"
)

func foldEvent(eventType event.Type, payload string) event.Event {
	return event.Event{
		AggregateType: AggregateType,
		AggregateID:   "task-1",
		Type:          eventType,
		PayloadJSON:   []byte(payload),
	}
}

func TestFoldLifecycle(t *testing.T) {
	history := []event.Event{
		foldEvent(EventTypeCreated, `{"title":"Write docs","notes":"outline"}`),
		foldEvent(EventTypeRenamed, `{"title":"Ship docs"}`),
		foldEvent(EventTypeCompleted, `{}`),
		foldEvent(EventTypeReopened, `{"reason":"typo"}`),
		foldEvent(EventTypeCompleted, `{}`),
		foldEvent(EventTypeArchived, `{}`),
	}

	state := State{}
	for i, evt := range history {
		next, err := Fold(state, evt)
		if err != nil {
			t.Fatalf("fold event %d: %v", i, err)
		}
		state = next
	}

	want := State{Created: true, Title: "Ship docs", Notes: "outline", Completed: true, Archived: true}
	if !reflect.DeepEqual(state, want) {
		t.Fatalf("state = %+v, want %+v", state, want)
	}
}

func TestFoldIgnoresUnknownEventTypes(t *testing.T) {
	state := State{Created: true, Title: "Write docs"}
	next, err := Fold(state, foldEvent("task.glittered", `{"sparkle":true}`))
	if err != nil {
		t.Fatalf("fold unknown event: %v", err)
	}
	if !reflect.DeepEqual(next, state) {
		t.Fatalf("unknown event changed state: %+v", next)
	}
}

func TestFoldIsDeterministic(t *testing.T) {
	evt := foldEvent(EventTypeCreated, `{"title":"Write docs"}`)
	first, err := Fold(State{}, evt)
	if err != nil {
		t.Fatalf("first fold: %v", err)
	}
	second, err := Fold(State{}, evt)
	if err != nil {
		t.Fatalf("second fold: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same event produced different states: %+v vs %+v", first, second)
	}
}

func TestFoldMalformedPayload(t *testing.T) {
	if _, err := Fold(State{}, foldEvent(EventTypeCreated, `{"title":`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
