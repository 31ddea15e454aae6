// Package task models the task aggregate.
//
// Tasks are the user-facing items of the journal: created, renamed,
// completed, reopened, and eventually archived. Archiving an open task is
// declined as a recorded fact rather than an error, so the audit trail keeps
// every attempt.
//
// The package holds:
//   - command deciders that translate task commands into events,
//   - fold logic for replaying task history,
//   - and the upcaster bridging v1 created payloads to the current shape.
package task
