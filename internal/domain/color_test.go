package domain

import "testing"

func TestEffectiveColor(t *testing.T) {
	accent := Color("#4A90E2")
	override := Color("#FF00FF")

	tests := []struct {
		name string
		port Port
		want Color
	}{
		{"inheriting output ignores stale color", NewOutputPort("o", "o").WithColor(override), accent},
		{"inheriting output without color", NewOutputPort("o", "o"), accent},
		{"overridden output", Port{ID: "o", Direction: DirectionOutput, Inherit: false, Color: ColorPtr(override)}, override},
		{"non-inheriting output without color", Port{ID: "o", Direction: DirectionOutput}, accent},
		{"non-inheriting output with empty color", Port{ID: "o", Direction: DirectionOutput, Color: ColorPtr("")}, accent},
		{"input with color", NewInputPort("i", "i").WithColor(override), override},
		{"input without color", NewInputPort("i", "i"), accent},
		{"input with empty color", Port{ID: "i", Direction: DirectionInput, Color: ColorPtr("")}, accent},
	}

	node := NewNode("n", "n", accent, Position{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveColor(node, &tt.port); got != tt.want {
				t.Errorf("EffectiveColor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		handle string
		dir    Direction
		portID string
		ok     bool
	}{
		{"out-to-process", DirectionOutput, "to-process", true},
		{"in-in1", DirectionInput, "in1", true},
		{"in-", DirectionInput, "", true},
		{"side-x", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		dir, portID, ok := ParseHandle(tt.handle)
		if dir != tt.dir || portID != tt.portID || ok != tt.ok {
			t.Errorf("ParseHandle(%q) = (%s, %q, %v), want (%s, %q, %v)",
				tt.handle, dir, portID, ok, tt.dir, tt.portID, tt.ok)
		}
	}
}

func TestPortHandleRoundTrip(t *testing.T) {
	for _, p := range []Port{NewInputPort("a", "A"), NewOutputPort("b", "B")} {
		dir, id, ok := ParseHandle(p.Handle())
		if !ok || dir != p.Direction || id != p.ID {
			t.Errorf("handle %q did not round-trip for %s port %q", p.Handle(), p.Direction, p.ID)
		}
	}
}
