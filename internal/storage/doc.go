// Package storage declares the persistence contracts for the event journal.
//
// The journal is the single source of truth: every read model or cache is
// rebuildable from it and must never be treated as a second authority.
package storage
