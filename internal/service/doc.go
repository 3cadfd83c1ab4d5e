// Package service hosts the editing session behind the HTTP, websocket and
// file-watch surfaces.
//
// # Editor
//
// Editor owns the single in-memory graph of a session. Every caller goes
// through it so mutations are applied one at a time. After each successful
// mutation the graph is serialized and written to the configured
// repository.Store; a failed write is logged, counted and published as an
// autosave_failed event, and the in-memory graph is kept as is.
//
// On startup Load reads the stored document once. A missing document keeps
// the initial graph (empty or the sample graph). A malformed document or an
// unreachable store keeps the initial graph too and is reported to the caller
// as a non-fatal error.
//
// # Event System
//
// Mutations publish events on an EventBus for real-time updates to connected
// clients via Server-Sent Events (SSE).
package service
