package domain

import "fmt"

// seqGenerator hands out predictable ids for tests
type seqGenerator struct {
	n      int
	accent Color
}

func newSeqGenerator(accent Color) *seqGenerator {
	return &seqGenerator{accent: accent}
}

func (g *seqGenerator) NewID() string {
	g.n++
	return fmt.Sprintf("id%d", g.n)
}

func (g *seqGenerator) AccentColor() Color { return g.accent }

func (g *seqGenerator) Position() Position { return Position{X: 10, Y: 20} }

// constGenerator always returns the same id to force collisions
type constGenerator struct{}

func (constGenerator) NewID() string      { return "dup" }
func (constGenerator) AccentColor() Color { return "#000000" }
func (constGenerator) Position() Position { return Position{} }

// twoNodeSnapshot builds node A with one output "out" and node B with one
// input "in" and no explicit color
func twoNodeSnapshot() Snapshot {
	a := NewNode("A", "A", "#10B981", Position{})
	a.Outputs = []Port{NewOutputPort("out", "Output")}
	b := NewNode("B", "B", "#4A90E2", Position{X: 300})
	b.Inputs = []Port{NewInputPort("in", "Input")}
	return Snapshot{Nodes: []Node{*a, *b}, Edges: []Edge{}}
}
