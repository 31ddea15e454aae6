package report

// RequestedPayload captures the payload for report.request commands and
// report.requested events.
type RequestedPayload struct {
	Kind string `json:"kind"`
}

// CompletedPayload captures the payload for report.completed events.
type CompletedPayload struct {
	Location string `json:"location,omitempty"`
	Rows     int    `json:"rows,omitempty"`
}

// FailedPayload captures the payload for report.failed events.
type FailedPayload struct {
	Reason string `json:"reason"`
}

// CancelledPayload captures the payload for report.cancelled events.
type CancelledPayload struct {
	Reason string `json:"reason,omitempty"`
}
