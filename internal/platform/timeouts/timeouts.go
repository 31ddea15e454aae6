// Package timeouts defines shared timeout constants used across the service.
// Centralizing these values prevents drift between components and makes the
// durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Command caps the time allowed for a single command round trip, including
// conflict retries.
const Command = 10 * time.Second

// FeedKeepalive is the interval between no-op keepalive frames on a
// streaming connection.
const FeedKeepalive = 15 * time.Second
