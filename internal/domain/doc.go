// Package domain defines the graph data model behind the nilor node editor.
//
// The package holds the entities a user manipulates on the canvas and the
// rules that keep them consistent as they change.
//
// # Core Types
//
// Port is a labeled connection point on a node. Its identity is the triple
// (node id, direction, port id); port ids are only unique within one node's
// input list or output list.
//
// Node is a titled container of input ports and output ports with display
// attributes: position, accent color and an optional subtitle.
//
// Edge is a directed connection from an output port to an input port. Its
// stroke color is captured when the connection is made and does not follow
// later recolors of the source.
//
// Graph is the store that owns nodes and edges, exposes every mutation and
// enforces referential integrity. Removing a node or a port deletes every
// edge that referenced it in the same step.
//
// # Color Resolution
//
// EffectiveColor computes the color a port is drawn with. Outputs track the
// node accent unless they carry an override; inputs use their own color when
// set and fall back to the accent otherwise.
//
// # Identifiers
//
// Ids, accent colors and default positions come from a Generator passed to
// the Graph. RandomGenerator is seedable so tests and replays stay
// deterministic.
//
// This package has no storage, transport or logging dependencies.
package domain
