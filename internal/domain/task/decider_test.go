package task

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/taskline/taskline/internal/domain/command"
	"github.com/taskline/taskline/internal/domain/event"
)

func taskCommand(cmdType command.Type, payload string) command.Command {
	return command.Command{
		AggregateType: AggregateType,
		AggregateID:   "task-1",
		Type:          cmdType,
		ActorType:     command.ActorTypeUser,
		CorrelationID: "corr-1",
		PayloadJSON:   []byte(payload),
	}
}

func TestDecideCreate_EmitsCreatedEvent(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cmd := taskCommand(CommandTypeCreate, `{"title":"  Write docs  ","notes":"outline first"}`)

	decision := Decide(State{}, cmd, now)
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}

	evt := decision.Events[0]
	if evt.Type != EventTypeCreated {
		t.Fatalf("event type = %s, want %s", evt.Type, EventTypeCreated)
	}
	if evt.AggregateID != "task-1" {
		t.Fatalf("event aggregate id = %s, want task-1", evt.AggregateID)
	}
	if evt.CorrelationID != "corr-1" {
		t.Fatalf("event correlation id = %s, want corr-1", evt.CorrelationID)
	}
	if !evt.Timestamp.Equal(now) {
		t.Fatalf("event timestamp = %s, want %s", evt.Timestamp, now)
	}
	if evt.ActorType != event.ActorTypeUser {
		t.Fatalf("event actor type = %s, want %s", evt.ActorType, event.ActorTypeUser)
	}

	var payload CreatedPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Title != "Write docs" {
		t.Fatalf("payload title = %q, want %q", payload.Title, "Write docs")
	}
	if payload.Notes != "outline first" {
		t.Fatalf("payload notes = %q, want %q", payload.Notes, "outline first")
	}
}

func TestDecideCreate_MissingTitleRejected(t *testing.T) {
	decision := Decide(State{}, taskCommand(CommandTypeCreate, `{"title":"  "}`), time.Now())
	if len(decision.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(decision.Events))
	}
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != rejectionCodeTaskTitleRequired {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, rejectionCodeTaskTitleRequired)
	}
}

func TestDecideCreate_ExistingTaskRejected(t *testing.T) {
	decision := Decide(State{Created: true}, taskCommand(CommandTypeCreate, `{"title":"again"}`), time.Now())
	if len(decision.Rejections) != 1 || decision.Rejections[0].Code != rejectionCodeTaskAlreadyExists {
		t.Fatalf("expected %s rejection, got %+v", rejectionCodeTaskAlreadyExists, decision.Rejections)
	}
}

func TestDecideArchive_OpenTaskRecordsDeclinedEvent(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	state := State{Created: true, Title: "Write docs"}

	decision := Decide(state, taskCommand(CommandTypeArchive, `{}`), now)
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected recorded decline, not rejection: %+v", decision.Rejections)
	}
	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if decision.Events[0].Type != EventTypeArchiveDeclined {
		t.Fatalf("event type = %s, want %s", decision.Events[0].Type, EventTypeArchiveDeclined)
	}

	// The decline leaves task data untouched after fold.
	next, err := Fold(state, decision.Events[0])
	if err != nil {
		t.Fatalf("fold declined event: %v", err)
	}
	if !reflect.DeepEqual(next, state) {
		t.Fatalf("state after decline = %+v, want unchanged %+v", next, state)
	}
}

func TestDecideArchive_CompletedTaskArchives(t *testing.T) {
	state := State{Created: true, Completed: true}
	decision := Decide(state, taskCommand(CommandTypeArchive, `{}`), time.Now())
	if len(decision.Events) != 1 || decision.Events[0].Type != EventTypeArchived {
		t.Fatalf("expected archived event, got %+v", decision)
	}
}

func TestDecideLifecycleGuards(t *testing.T) {
	cases := []struct {
		name     string
		state    State
		cmd      command.Command
		wantCode string
	}{
		{"rename missing task", State{}, taskCommand(CommandTypeRename, `{"title":"x"}`), rejectionCodeTaskNotFound},
		{"rename archived task", State{Created: true, Archived: true}, taskCommand(CommandTypeRename, `{"title":"x"}`), rejectionCodeTaskArchived},
		{"complete twice", State{Created: true, Completed: true}, taskCommand(CommandTypeComplete, `{}`), rejectionCodeTaskAlreadyDone},
		{"reopen open task", State{Created: true}, taskCommand(CommandTypeReopen, `{}`), rejectionCodeTaskAlreadyOpen},
		{"archive missing task", State{}, taskCommand(CommandTypeArchive, `{}`), rejectionCodeTaskNotFound},
		{"archive twice", State{Created: true, Archived: true}, taskCommand(CommandTypeArchive, `{}`), rejectionCodeTaskAlreadyRemoved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(tc.state, tc.cmd, time.Now())
			if len(decision.Rejections) != 1 {
				t.Fatalf("expected 1 rejection, got %+v", decision)
			}
			if decision.Rejections[0].Code != tc.wantCode {
				t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, tc.wantCode)
			}
		})
	}
}

func TestDecideIsReferentiallyTransparent(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	state := State{Created: true, Title: "Write docs"}
	cmd := taskCommand(CommandTypeRename, `{"title":"Ship docs"}`)

	first := Decide(state, cmd, now)
	second := Decide(state, cmd, now)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different decisions:\n%+v\n%+v", first, second)
	}
}
