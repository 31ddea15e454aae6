// Package runtime executes commands against the event journal.
//
// For every command the runtime loads the aggregate's history, folds it into
// state, decides, appends the produced events with optimistic locking, and
// publishes them on the distribution bus after commit. Conflict handling is
// policy-driven per command class, saga reactions are dispatched for every
// committed event, and detached background work starts only once its trigger
// event is durable.
package runtime
