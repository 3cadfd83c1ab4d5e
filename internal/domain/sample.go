package domain

// SampleSnapshot returns the starter graph shown in a fresh editor: two
// sources feeding a process node that feeds an output node
func SampleSnapshot() Snapshot {
	inputA := NewNode("in1", "Input A", "#10B981", Position{X: 100, Y: 120})
	inputA.Outputs = []Port{NewOutputPort("out", "Output")}

	inputB := NewNode("in2", "Input B", "#F39C12", Position{X: 100, Y: 260})
	inputB.Outputs = []Port{
		NewOutputPort("to-process", "To Process"),
		NewOutputPort("to-output", "To Output"),
	}

	process := NewNode("proc", "Process", "#4A90E2", Position{X: 420, Y: 180})
	process.Inputs = []Port{
		NewInputPort("in1", "Input 1").WithColor("#10B981"),
		NewInputPort("in2", "Input 2").WithColor("#F39C12"),
	}
	process.Outputs = []Port{NewOutputPort("out", "Output")}

	output := NewNode("out", "Output", "#9B59B6", Position{X: 740, Y: 180})
	output.Inputs = []Port{NewInputPort("in", "Input").WithColor("#4A90E2")}

	return Snapshot{
		Nodes: []Node{*inputA, *inputB, *process, *output},
		Edges: []Edge{
			sampleEdge("e-in1-proc", "in1", "out", "proc", "in1", "#10B981"),
			sampleEdge("e-in2-proc", "in2", "to-process", "proc", "in2", "#F39C12"),
			sampleEdge("e-in2-out", "in2", "to-output", "out", "in", "#F39C12"),
		},
	}
}

func sampleEdge(id, src, srcPort, dst, dstPort string, stroke Color) Edge {
	return Edge{
		ID:           id,
		SourceNodeID: src,
		SourcePortID: srcPort,
		TargetNodeID: dst,
		TargetPortID: dstPort,
		StrokeColor:  stroke,
		StrokeWidth:  DefaultStrokeWidth,
	}
}
