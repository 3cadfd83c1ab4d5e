package domain

// Color is a CSS color value, normally "#RRGGBB"
type Color string

// FallbackStroke is drawn for a wire whose source port cannot be resolved
const FallbackStroke Color = "#8b8b8b"

// String returns the color as a plain string
func (c Color) String() string {
	return string(c)
}

// ColorPtr returns a pointer to c
func ColorPtr(c Color) *Color {
	return &c
}

// EffectiveColor returns the color a port is drawn with.
//
// Outputs use the node accent while they inherit, and their own color only
// once the inherit flag is cleared. Inputs use their own color whenever one
// is set. The accent color is always the last resort.
func EffectiveColor(node *Node, port *Port) Color {
	if port.Direction == DirectionOutput {
		if port.Inherit {
			return node.AccentColor
		}
		if port.Color != nil && *port.Color != "" {
			return *port.Color
		}
		return node.AccentColor
	}

	if port.Color != nil && *port.Color != "" {
		return *port.Color
	}
	return node.AccentColor
}
