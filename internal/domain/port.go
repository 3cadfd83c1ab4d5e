package domain

import "strings"

// Direction is the side of a node a port sits on
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == DirectionInput || d == DirectionOutput
}

// ParseDirection accepts the singular and plural spellings used by clients
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "input", "inputs", "in":
		return DirectionInput, true
	case "output", "outputs", "out":
		return DirectionOutput, true
	}
	return "", false
}

// Port is a connection point on a node.
//
// Inherit only applies to outputs: an inheriting output is drawn with the
// node accent no matter what Color holds.
type Port struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Color     *Color    `json:"color,omitempty"`
	Direction Direction `json:"direction"`
	Inherit   bool      `json:"inherit"`
}

// NewInputPort creates an input port without an explicit color
func NewInputPort(id, label string) Port {
	return Port{ID: id, Label: label, Direction: DirectionInput}
}

// NewOutputPort creates an output port that inherits the node accent
func NewOutputPort(id, label string) Port {
	return Port{ID: id, Label: label, Direction: DirectionOutput, Inherit: true}
}

// WithColor returns a copy of p carrying an explicit color
func (p Port) WithColor(c Color) Port {
	p.Color = &c
	return p
}

// Clone returns a copy that shares no memory with p
func (p Port) Clone() Port {
	if p.Color != nil {
		c := *p.Color
		p.Color = &c
	}
	return p
}

// Handle returns the rendering-layer handle id for the port
func (p Port) Handle() string {
	if p.Direction == DirectionOutput {
		return OutputHandle(p.ID)
	}
	return InputHandle(p.ID)
}

const (
	outputHandlePrefix = "out-"
	inputHandlePrefix  = "in-"
)

// OutputHandle builds the source handle id for an output port
func OutputHandle(portID string) string {
	return outputHandlePrefix + portID
}

// InputHandle builds the target handle id for an input port
func InputHandle(portID string) string {
	return inputHandlePrefix + portID
}

// ParseHandle strips the handle prefix and reports which side it names
func ParseHandle(handle string) (Direction, string, bool) {
	switch {
	case strings.HasPrefix(handle, outputHandlePrefix):
		return DirectionOutput, strings.TrimPrefix(handle, outputHandlePrefix), true
	case strings.HasPrefix(handle, inputHandlePrefix):
		return DirectionInput, strings.TrimPrefix(handle, inputHandlePrefix), true
	}
	return "", "", false
}
