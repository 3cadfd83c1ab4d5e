package domain

import "fmt"

// NodeKind selects the preset port layout of a new node
type NodeKind string

const (
	NodeKindSource    NodeKind = "source"    // outputs only
	NodeKindSink      NodeKind = "sink"      // inputs only
	NodeKindTransform NodeKind = "transform" // inputs and outputs
)

// presetPortCount is the number of ports per side a preset layout creates
const presetPortCount = 2

// DefaultSubtitle is shown when a subtitle is switched on without text
const DefaultSubtitle = "Subtitle"

// ParseNodeKind accepts the kind names and the toolbar aliases
// ("input", "process", "output")
func ParseNodeKind(s string) (NodeKind, error) {
	switch s {
	case "source", "input":
		return NodeKindSource, nil
	case "sink", "output":
		return NodeKindSink, nil
	case "transform", "process":
		return NodeKindTransform, nil
	}
	return "", fmt.Errorf("node kind %q: %w", s, ErrUnknownKind)
}

// Title returns the default title for nodes of this kind
func (k NodeKind) Title() string {
	switch k {
	case NodeKindSource:
		return "Input Node"
	case NodeKindSink:
		return "Output Node"
	default:
		return "Process Node"
	}
}

func (k NodeKind) hasInputs() bool {
	return k == NodeKindSink || k == NodeKindTransform
}

func (k NodeKind) hasOutputs() bool {
	return k == NodeKindSource || k == NodeKindTransform
}

// Node is a titled container of ports on the canvas
type Node struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Subtitle    *string  `json:"subtitle,omitempty"`
	AccentColor Color    `json:"accent_color"`
	Position    Position `json:"position"`
	Inputs      []Port   `json:"inputs"`
	Outputs     []Port   `json:"outputs"`
}

// NewNode creates an empty node
func NewNode(id, title string, accent Color, pos Position) *Node {
	return &Node{
		ID:          id,
		Title:       title,
		AccentColor: accent,
		Position:    pos,
		Inputs:      make([]Port, 0),
		Outputs:     make([]Port, 0),
	}
}

// Ports returns the port list for one side of the node
func (n *Node) Ports(dir Direction) []Port {
	if dir == DirectionOutput {
		return n.Outputs
	}
	return n.Inputs
}

// Port finds a port by direction and id
func (n *Node) Port(dir Direction, portID string) (*Port, bool) {
	ports := n.Ports(dir)
	for i := range ports {
		if ports[i].ID == portID {
			return &ports[i], true
		}
	}
	return nil, false
}

// HasSubtitle reports whether the subtitle is shown
func (n *Node) HasSubtitle() bool {
	return n.Subtitle != nil
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	c := *n
	if n.Subtitle != nil {
		s := *n.Subtitle
		c.Subtitle = &s
	}
	c.Inputs = clonePorts(n.Inputs)
	c.Outputs = clonePorts(n.Outputs)
	return &c
}

func (n *Node) setPorts(dir Direction, ports []Port) {
	if dir == DirectionOutput {
		n.Outputs = ports
	} else {
		n.Inputs = ports
	}
}

func clonePorts(ports []Port) []Port {
	out := make([]Port, len(ports))
	for i, p := range ports {
		out[i] = p.Clone()
	}
	return out
}

// defaultPortLabel numbers a port after the ones already on its side
func defaultPortLabel(dir Direction, index int) string {
	if dir == DirectionOutput {
		return fmt.Sprintf("Output %d", index)
	}
	return fmt.Sprintf("Input %d", index)
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
