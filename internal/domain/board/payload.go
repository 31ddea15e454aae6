package board

// TrackTaskPayload captures the payload for board.track_task commands and
// board.task_tracked events.
type TrackTaskPayload struct {
	TaskID string `json:"task_id"`
}

// TrackCompletionPayload captures the payload for board.track_completion
// commands and board.completion_tracked events.
type TrackCompletionPayload struct {
	TaskID string `json:"task_id"`
}
