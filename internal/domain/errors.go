package domain

import "errors"

// Graph errors. Callers match them with errors.Is; the returned errors wrap
// these with the offending ids.
var (
	// ErrNotFound is returned when a node, port or edge id does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidEndpoint is returned by Connect when either endpoint is
	// missing or sits on the wrong side of its node
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrDanglingReference is returned when a snapshot holds an edge whose
	// node or port is absent from the same snapshot
	ErrDanglingReference = errors.New("dangling reference")

	// ErrDuplicateID is returned when a snapshot reuses a node, edge or port id
	ErrDuplicateID = errors.New("duplicate id")

	// ErrEmptyColor is returned when a node is given no accent color. Every
	// port falls back to the accent, so it can never be empty.
	ErrEmptyColor = errors.New("empty accent color")

	// ErrUnknownKind is returned for a node kind with no preset layout
	ErrUnknownKind = errors.New("unknown node kind")
)
