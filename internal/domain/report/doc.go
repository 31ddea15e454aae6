// Package report models the report aggregate.
//
// Reports are expensive exports: requesting one persists report.requested and
// nothing else. The actual work runs as a detached background unit started by
// the runtime after commit, tracked by correlation id, and its terminal
// outcome re-enters the pipeline as a system command that persists
// report.completed, report.failed, or report.cancelled. Callers observe
// outcomes only through the event feed.
package report
