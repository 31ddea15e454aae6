package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskline/taskline/internal/domain/command"
	apperrors "github.com/taskline/taskline/internal/platform/errors"
)

// commandRequest is the wire shape of a submitted command.
type commandRequest struct {
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Type          string          `json:"type"`
	ActorType     string          `json:"actor_type,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// commandResponse acknowledges an accepted command. Terminal outcomes of any
// follow-up work are observed via the event feed, never here.
type commandResponse struct {
	CorrelationID string   `json:"correlation_id"`
	GlobalSeqs    []uint64 `json:"global_seqs,omitempty"`
}

type errorResponse struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewMux routes the HTTP API surface.
func (s *Services) NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/commands", s.handleCommand)
	mux.Handle("GET /v1/events", s.Feed.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

func (s *Services) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    string(apperrors.CodeInvalidArgument),
			Message: "request body must be a command JSON object",
		})
		return
	}

	actorType := command.ActorType(req.ActorType)
	if actorType == "" {
		// Commands arriving over the public API belong to users; system
		// commands originate inside the runtime.
		actorType = command.ActorTypeUser
	}

	result, err := s.Runtime.Execute(r.Context(), command.Command{
		AggregateType: req.AggregateType,
		AggregateID:   req.AggregateID,
		Type:          command.Type(req.Type),
		ActorType:     actorType,
		RequestID:     req.RequestID,
		CorrelationID: req.CorrelationID,
		PayloadJSON:   req.Payload,
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			writeJSON(w, appErr.Code.HTTPStatus(), errorResponse{
				Code:     string(appErr.Code),
				Message:  appErr.Message,
				Metadata: appErr.Metadata,
			})
			return
		}
		s.Logger.Printf("app: command %s failed: %v", req.Type, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    string(apperrors.CodeUnknown),
			Message: "internal error",
		})
		return
	}

	if result.Rejected() {
		rejection := result.Rejections[0]
		writeJSON(w, apperrors.CodeCommandRejected.HTTPStatus(), errorResponse{
			Code:    rejection.Code,
			Message: rejection.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{
		CorrelationID: result.CorrelationID,
		GlobalSeqs:    result.GlobalSeqs(),
	})
}

func (s *Services) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.LatestSeq(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:    string(apperrors.CodeStorageUnavailable),
			Message: "storage unavailable",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
