// Package repository defines the persistence port used for autosave.
//
// The editor stores exactly one serialized graph document under a well-known
// key. A Store therefore only ever loads, saves, or clears that one blob; the
// document format is owned by the codec package, not by storage.
//
// # Implementations
//
// - sqlite: a documents table keyed by name, written with an upsert, WAL mode
// - file: one file on disk, replaced atomically through a temp file + rename
// - memory: a map guarded by a mutex, for tests and throwaway sessions
//
// Every implementation reports "nothing saved yet" as ErrNoDocument and wraps
// any I/O failure in ErrStorageUnavailable so callers can tell a cold start
// from a broken backend.
package repository
