package domain

import "fmt"

// Snapshot is a self-contained copy of a graph's nodes and edges in order
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Graph owns the nodes and edges of one editing session.
//
// Every mutating method validates before it changes anything, so a returned
// error always means the graph is exactly as it was. Graph is not safe for
// concurrent use.
type Graph struct {
	nodes []*Node
	edges []*Edge
	gen   Generator
}

// NewGraph creates an empty graph drawing ids from gen
func NewGraph(gen Generator) *Graph {
	if gen == nil {
		gen = NewTimeSeededGenerator()
	}
	return &Graph{
		nodes: make([]*Node, 0),
		edges: make([]*Edge, 0),
		gen:   gen,
	}
}

// Len returns the number of nodes and edges
func (g *Graph) Len() (nodes, edges int) {
	return len(g.nodes), len(g.edges)
}

// Generator returns the generator the graph draws ids from
func (g *Graph) Generator() Generator {
	return g.gen
}

// Node returns a copy of the node with the given id
func (g *Graph) Node(id string) (*Node, error) {
	n, err := g.node(id)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

// Edge returns a copy of the edge with the given id
func (g *Graph) Edge(id string) (*Edge, error) {
	_, e := g.edge(id)
	if e == nil {
		return nil, fmt.Errorf("edge %q: %w", id, ErrNotFound)
	}
	c := *e
	return &c, nil
}

// Nodes returns copies of all nodes in insertion order
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n.Clone())
	}
	return out
}

// Edges returns copies of all edges in insertion order
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

// ============================================================================
// Nodes
// ============================================================================

// AddNode creates a node with the preset port layout for kind
func (g *Graph) AddNode(kind NodeKind, pos Position) (string, error) {
	if _, err := ParseNodeKind(string(kind)); err != nil {
		return "", err
	}

	id := freshID(g.gen, "", func(id string) bool { return g.indexOfNode(id) >= 0 })
	accent := g.gen.AccentColor()
	if accent == "" {
		accent = AccentPalette[0]
	}
	node := NewNode(id, kind.Title(), accent, pos)

	if kind.hasInputs() {
		node.Inputs = g.presetPorts(DirectionInput, accent)
	}
	if kind.hasOutputs() {
		node.Outputs = g.presetPorts(DirectionOutput, accent)
	}

	g.nodes = append(g.nodes, node)
	return id, nil
}

// presetPorts builds the ports of a new node. They carry the accent color
// the node was created with.
func (g *Graph) presetPorts(dir Direction, accent Color) []Port {
	ports := make([]Port, 0, presetPortCount)
	for i := 1; i <= presetPortCount; i++ {
		id := freshID(g.gen, "", func(id string) bool {
			for _, p := range ports {
				if p.ID == id {
					return true
				}
			}
			return false
		})
		port := NewInputPort(id, defaultPortLabel(dir, i))
		if dir == DirectionOutput {
			port = NewOutputPort(id, defaultPortLabel(dir, i))
		}
		ports = append(ports, port.WithColor(accent))
	}
	return ports
}

// RemoveNode deletes a node and every edge attached to it
func (g *Graph) RemoveNode(id string) error {
	i := g.indexOfNode(id)
	if i < 0 {
		return fmt.Errorf("node %q: %w", id, ErrNotFound)
	}

	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	g.removeEdges(func(e *Edge) bool { return e.Touches(id) })
	return nil
}

// RenameNode sets a node's title
func (g *Graph) RenameNode(id, title string) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	n.Title = title
	return nil
}

// SetAccentColor sets a node's accent color. Existing wires keep their color.
func (g *Graph) SetAccentColor(id string, color Color) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if color == "" {
		return fmt.Errorf("node %q: %w", id, ErrEmptyColor)
	}
	n.AccentColor = color
	return nil
}

// SetSubtitle shows the given subtitle, or hides it when text is nil
func (g *Graph) SetSubtitle(id string, text *string) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if text == nil {
		n.Subtitle = nil
		return nil
	}
	s := *text
	n.Subtitle = &s
	return nil
}

// ToggleSubtitle switches the subtitle on or off. Switching it on keeps any
// text already present and otherwise shows DefaultSubtitle.
func (g *Graph) ToggleSubtitle(id string, show bool) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	switch {
	case !show:
		n.Subtitle = nil
	case n.Subtitle == nil || *n.Subtitle == "":
		n.Subtitle = StringPtr(DefaultSubtitle)
	}
	return nil
}

// MoveNode sets a node's canvas position
func (g *Graph) MoveNode(id string, pos Position) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	n.Position = pos
	return nil
}

// ============================================================================
// Ports
// ============================================================================

// AddPort appends a port to one side of a node. An empty label is replaced
// with the next numbered default ("Input 3", "Output 2", ...).
func (g *Graph) AddPort(nodeID string, dir Direction, label string) (string, error) {
	if !dir.Valid() {
		return "", fmt.Errorf("direction %q: %w", dir, ErrNotFound)
	}
	n, err := g.node(nodeID)
	if err != nil {
		return "", err
	}

	ports := n.Ports(dir)
	if label == "" {
		label = defaultPortLabel(dir, len(ports)+1)
	}
	id := freshID(g.gen, "", func(id string) bool {
		_, ok := n.Port(dir, id)
		return ok
	})

	port := NewInputPort(id, label)
	if dir == DirectionOutput {
		port = NewOutputPort(id, label)
	}
	n.setPorts(dir, append(ports, port.WithColor(n.AccentColor)))
	return id, nil
}

// RemovePort deletes a port and every edge attached to it
func (g *Graph) RemovePort(nodeID string, dir Direction, portID string) error {
	n, _, err := g.port(nodeID, dir, portID)
	if err != nil {
		return err
	}

	ports := n.Ports(dir)
	kept := make([]Port, 0, len(ports)-1)
	for _, p := range ports {
		if p.ID != portID {
			kept = append(kept, p)
		}
	}
	n.setPorts(dir, kept)
	g.removeEdges(func(e *Edge) bool { return e.References(nodeID, dir, portID) })
	return nil
}

// RenamePort sets a port's label
func (g *Graph) RenamePort(nodeID string, dir Direction, portID, label string) error {
	_, p, err := g.port(nodeID, dir, portID)
	if err != nil {
		return err
	}
	p.Label = label
	return nil
}

// SetPortColorOverride gives an output its own color and stops it inheriting
// the node accent
func (g *Graph) SetPortColorOverride(nodeID, portID string, color Color) error {
	_, p, err := g.port(nodeID, DirectionOutput, portID)
	if err != nil {
		return err
	}
	p.Color = ColorPtr(color)
	p.Inherit = false
	return nil
}

// ResetPortColorOverride clears an output's color so it inherits again
func (g *Graph) ResetPortColorOverride(nodeID, portID string) error {
	_, p, err := g.port(nodeID, DirectionOutput, portID)
	if err != nil {
		return err
	}
	p.Color = nil
	p.Inherit = true
	return nil
}

// SetInputColor sets an input's explicit color
func (g *Graph) SetInputColor(nodeID, portID string, color Color) error {
	_, p, err := g.port(nodeID, DirectionInput, portID)
	if err != nil {
		return err
	}
	p.Color = ColorPtr(color)
	return nil
}

// ClearInputColor removes an input's explicit color
func (g *Graph) ClearInputColor(nodeID, portID string) error {
	_, p, err := g.port(nodeID, DirectionInput, portID)
	if err != nil {
		return err
	}
	p.Color = nil
	return nil
}

// PortColor resolves the effective color of a port
func (g *Graph) PortColor(nodeID string, dir Direction, portID string) (Color, error) {
	n, p, err := g.port(nodeID, dir, portID)
	if err != nil {
		return "", err
	}
	return EffectiveColor(n, p), nil
}

// ============================================================================
// Edges
// ============================================================================

// Connect draws a wire from an output port to an input port and returns its
// id. The wire color is the source port's effective color at this moment.
// Self-loops and parallel wires are allowed.
func (g *Graph) Connect(sourceNodeID, sourcePortID, targetNodeID, targetPortID string) (string, error) {
	src, srcPort, err := g.port(sourceNodeID, DirectionOutput, sourcePortID)
	if err != nil {
		return "", fmt.Errorf("source %s/%s: %w", sourceNodeID, sourcePortID, ErrInvalidEndpoint)
	}
	if _, _, err := g.port(targetNodeID, DirectionInput, targetPortID); err != nil {
		return "", fmt.Errorf("target %s/%s: %w", targetNodeID, targetPortID, ErrInvalidEndpoint)
	}

	id := freshID(g.gen, "e-", func(id string) bool {
		_, e := g.edge(id)
		return e != nil
	})
	g.edges = append(g.edges, &Edge{
		ID:           id,
		SourceNodeID: sourceNodeID,
		SourcePortID: sourcePortID,
		TargetNodeID: targetNodeID,
		TargetPortID: targetPortID,
		StrokeColor:  EffectiveColor(src, srcPort),
		StrokeWidth:  DefaultStrokeWidth,
	})
	return id, nil
}

// Disconnect deletes an edge
func (g *Graph) Disconnect(edgeID string) error {
	i, e := g.edge(edgeID)
	if e == nil {
		return fmt.Errorf("edge %q: %w", edgeID, ErrNotFound)
	}
	g.edges = append(g.edges[:i], g.edges[i+1:]...)
	return nil
}

// ============================================================================
// Snapshots
// ============================================================================

// Snapshot returns a deep copy of the whole graph
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: g.Nodes(), Edges: g.Edges()}
}

// Restore replaces the whole graph with the snapshot. The snapshot is
// validated first; on error the graph keeps its current contents.
func (g *Graph) Restore(snap Snapshot) error {
	if err := ValidateSnapshot(snap); err != nil {
		return err
	}

	nodes := make([]*Node, 0, len(snap.Nodes))
	for i := range snap.Nodes {
		n := snap.Nodes[i].Clone()
		// The list a port sits in decides its direction
		for j := range n.Inputs {
			n.Inputs[j].Direction = DirectionInput
		}
		for j := range n.Outputs {
			n.Outputs[j].Direction = DirectionOutput
		}
		nodes = append(nodes, n)
	}
	edges := make([]*Edge, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		edges = append(edges, &e)
	}

	g.nodes = nodes
	g.edges = edges
	return nil
}

// ValidateSnapshot checks that ids are unique, that every node has an accent
// color and that every edge starts at an existing output port and ends at an
// existing input port
func ValidateSnapshot(snap Snapshot) error {
	nodes := make(map[string]*Node, len(snap.Nodes))
	for i := range snap.Nodes {
		n := &snap.Nodes[i]
		if _, dup := nodes[n.ID]; dup {
			return fmt.Errorf("node %q: %w", n.ID, ErrDuplicateID)
		}
		if n.AccentColor == "" {
			return fmt.Errorf("node %q: %w", n.ID, ErrEmptyColor)
		}
		nodes[n.ID] = n
		for _, dir := range []Direction{DirectionInput, DirectionOutput} {
			if err := checkPortIDs(n, dir); err != nil {
				return err
			}
		}
	}

	edges := make(map[string]struct{}, len(snap.Edges))
	for _, e := range snap.Edges {
		if _, dup := edges[e.ID]; dup {
			return fmt.Errorf("edge %q: %w", e.ID, ErrDuplicateID)
		}
		edges[e.ID] = struct{}{}

		if err := checkEndpoint(nodes, e.ID, e.SourceNodeID, DirectionOutput, e.SourcePortID); err != nil {
			return err
		}
		if err := checkEndpoint(nodes, e.ID, e.TargetNodeID, DirectionInput, e.TargetPortID); err != nil {
			return err
		}
	}
	return nil
}

func checkPortIDs(n *Node, dir Direction) error {
	seen := make(map[string]struct{}, len(n.Ports(dir)))
	for _, p := range n.Ports(dir) {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("node %q %s port %q: %w", n.ID, dir, p.ID, ErrDuplicateID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

func checkEndpoint(nodes map[string]*Node, edgeID, nodeID string, dir Direction, portID string) error {
	n, ok := nodes[nodeID]
	if !ok {
		return fmt.Errorf("edge %q: node %q: %w", edgeID, nodeID, ErrDanglingReference)
	}
	if _, ok := n.Port(dir, portID); !ok {
		return fmt.Errorf("edge %q: %s port %q on node %q: %w", edgeID, dir, portID, nodeID, ErrDanglingReference)
	}
	return nil
}

// ============================================================================
// Lookup helpers
// ============================================================================

func (g *Graph) indexOfNode(id string) int {
	for i, n := range g.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (g *Graph) node(id string) (*Node, error) {
	if i := g.indexOfNode(id); i >= 0 {
		return g.nodes[i], nil
	}
	return nil, fmt.Errorf("node %q: %w", id, ErrNotFound)
}

func (g *Graph) port(nodeID string, dir Direction, portID string) (*Node, *Port, error) {
	if !dir.Valid() {
		return nil, nil, fmt.Errorf("direction %q: %w", dir, ErrNotFound)
	}
	n, err := g.node(nodeID)
	if err != nil {
		return nil, nil, err
	}
	p, ok := n.Port(dir, portID)
	if !ok {
		return nil, nil, fmt.Errorf("node %q %s port %q: %w", nodeID, dir, portID, ErrNotFound)
	}
	return n, p, nil
}

func (g *Graph) edge(id string) (int, *Edge) {
	for i, e := range g.edges {
		if e.ID == id {
			return i, e
		}
	}
	return -1, nil
}

func (g *Graph) removeEdges(match func(*Edge) bool) {
	kept := g.edges[:0]
	for _, e := range g.edges {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(g.edges); i++ {
		g.edges[i] = nil
	}
	g.edges = kept
}
