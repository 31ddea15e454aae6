package task

// CreatedPayload captures the payload for task.create commands and
// task.created events at the current schema version.
type CreatedPayload struct {
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

// createdPayloadV1 is the retired first-generation created shape, kept only
// for the upcaster that bridges stored v1 rows.
type createdPayloadV1 struct {
	Text string `json:"text"`
}

// RenamedPayload captures the payload for task.rename commands and
// task.renamed events.
type RenamedPayload struct {
	Title string `json:"title"`
}

// CompletedPayload captures the payload for task.completed events.
type CompletedPayload struct{}

// ReopenedPayload captures the payload for task.reopened events.
type ReopenedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// ArchivedPayload captures the payload for task.archived events.
type ArchivedPayload struct{}

// ArchiveDeclinedPayload captures the payload for task.archive_declined
// failure events.
type ArchiveDeclinedPayload struct {
	Reason string `json:"reason"`
}
