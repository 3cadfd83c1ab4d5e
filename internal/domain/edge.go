package domain

// DefaultStrokeWidth is the wire thickness for new connections
const DefaultStrokeWidth = 2.5

// Edge is a wire from an output port to an input port.
//
// StrokeColor is copied from the source port when the wire is drawn and is
// not kept in sync afterwards.
type Edge struct {
	ID           string  `json:"id"`
	SourceNodeID string  `json:"source_node_id"`
	SourcePortID string  `json:"source_port_id"`
	TargetNodeID string  `json:"target_node_id"`
	TargetPortID string  `json:"target_port_id"`
	StrokeColor  Color   `json:"stroke_color"`
	StrokeWidth  float64 `json:"stroke_width"`
}

// Touches reports whether the edge starts or ends at the node
func (e *Edge) Touches(nodeID string) bool {
	return e.SourceNodeID == nodeID || e.TargetNodeID == nodeID
}

// References reports whether the edge is attached to the given port
func (e *Edge) References(nodeID string, dir Direction, portID string) bool {
	if dir == DirectionOutput {
		return e.SourceNodeID == nodeID && e.SourcePortID == portID
	}
	return e.TargetNodeID == nodeID && e.TargetPortID == portID
}

// SourceHandle returns the rendering-layer handle of the source port
func (e *Edge) SourceHandle() string {
	return OutputHandle(e.SourcePortID)
}

// TargetHandle returns the rendering-layer handle of the target port
func (e *Edge) TargetHandle() string {
	return InputHandle(e.TargetPortID)
}
