package codec

import (
	"errors"
	"fmt"
	"strings"

	"nilor/internal/domain"

	"github.com/go-playground/validator/v10"
)

const (
	// NodeType is the node renderer every document node uses
	NodeType = "nilor"
	// EdgeType is the wire renderer every document edge uses
	EdgeType = "bezier"
)

// Document is the persisted and exported form of a graph
type Document struct {
	Nodes []NodeDoc `json:"nodes" yaml:"nodes" validate:"required,dive"`
	Edges []EdgeDoc `json:"edges" yaml:"edges" validate:"required,dive"`
}

// NodeDoc is one node in a Document
type NodeDoc struct {
	ID       string      `json:"id" yaml:"id" validate:"required"`
	Type     string      `json:"type" yaml:"type" validate:"omitempty,eq=nilor"`
	Position PositionDoc `json:"position" yaml:"position"`
	Data     NodeData    `json:"data" yaml:"data"`
}

// PositionDoc is a canvas coordinate
type PositionDoc struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData holds the editable attributes of a node
type NodeData struct {
	Title       string    `json:"title" yaml:"title"`
	Subtitle    *string   `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	AccentColor string    `json:"accentColor" yaml:"accentColor" validate:"required"`
	Inputs      []PortDoc `json:"inputs" yaml:"inputs" validate:"dive"`
	Outputs     []PortDoc `json:"outputs" yaml:"outputs" validate:"dive"`
}

// PortDoc is one port. Inherit is only written for outputs.
type PortDoc struct {
	ID      string  `json:"id" yaml:"id" validate:"required"`
	Label   string  `json:"label" yaml:"label"`
	Color   *string `json:"color,omitempty" yaml:"color,omitempty"`
	Inherit *bool   `json:"inherit,omitempty" yaml:"inherit,omitempty"`
}

// EdgeDoc is one wire. Handles carry the "out-" / "in-" prefix.
type EdgeDoc struct {
	ID           string    `json:"id" yaml:"id" validate:"required"`
	Source       string    `json:"source" yaml:"source" validate:"required"`
	SourceHandle string    `json:"sourceHandle" yaml:"sourceHandle" validate:"required,startswith=out-"`
	Target       string    `json:"target" yaml:"target" validate:"required"`
	TargetHandle string    `json:"targetHandle" yaml:"targetHandle" validate:"required,startswith=in-"`
	Type         string    `json:"type" yaml:"type"`
	Style        EdgeStyle `json:"style" yaml:"style"`
}

// EdgeStyle is the stroke a wire is drawn with
type EdgeStyle struct {
	Stroke      string  `json:"stroke" yaml:"stroke"`
	StrokeWidth float64 `json:"strokeWidth" yaml:"strokeWidth"`
}

var validate = validator.New()

// Serialize converts a snapshot into a Document. It never fails.
func Serialize(snap domain.Snapshot) *Document {
	doc := &Document{
		Nodes: make([]NodeDoc, 0, len(snap.Nodes)),
		Edges: make([]EdgeDoc, 0, len(snap.Edges)),
	}

	for _, n := range snap.Nodes {
		data := NodeData{
			Title:       n.Title,
			AccentColor: n.AccentColor.String(),
			Inputs:      make([]PortDoc, 0, len(n.Inputs)),
			Outputs:     make([]PortDoc, 0, len(n.Outputs)),
		}
		if n.Subtitle != nil {
			s := *n.Subtitle
			data.Subtitle = &s
		}
		for _, p := range n.Inputs {
			data.Inputs = append(data.Inputs, portToDoc(p))
		}
		for _, p := range n.Outputs {
			pd := portToDoc(p)
			inherit := p.Inherit
			pd.Inherit = &inherit
			data.Outputs = append(data.Outputs, pd)
		}

		doc.Nodes = append(doc.Nodes, NodeDoc{
			ID:       n.ID,
			Type:     NodeType,
			Position: PositionDoc{X: n.Position.X, Y: n.Position.Y},
			Data:     data,
		})
	}

	for _, e := range snap.Edges {
		doc.Edges = append(doc.Edges, EdgeDoc{
			ID:           e.ID,
			Source:       e.SourceNodeID,
			SourceHandle: e.SourceHandle(),
			Target:       e.TargetNodeID,
			TargetHandle: e.TargetHandle(),
			Type:         EdgeType,
			Style: EdgeStyle{
				Stroke:      e.StrokeColor.String(),
				StrokeWidth: e.StrokeWidth,
			},
		})
	}

	return doc
}

func portToDoc(p domain.Port) PortDoc {
	pd := PortDoc{ID: p.ID, Label: p.Label}
	if p.Color != nil {
		c := p.Color.String()
		pd.Color = &c
	}
	return pd
}

// Deserialize validates a Document and converts it into a snapshot.
//
// Structural problems (missing lists, missing ids, bad handles, reused ids)
// return ErrMalformedDocument. An edge whose node or port is not in the same
// document returns domain.ErrDanglingReference and the whole document is
// rejected.
func Deserialize(doc *Document) (domain.Snapshot, error) {
	if doc == nil {
		return domain.Snapshot{}, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	if doc.Nodes == nil {
		return domain.Snapshot{}, fmt.Errorf("%w: nodes must be a list", ErrMalformedDocument)
	}
	if doc.Edges == nil {
		return domain.Snapshot{}, fmt.Errorf("%w: edges must be a list", ErrMalformedDocument)
	}
	if err := validate.Struct(doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", ErrMalformedDocument, formatValidationError(err))
	}

	snap := domain.Snapshot{
		Nodes: make([]domain.Node, 0, len(doc.Nodes)),
		Edges: make([]domain.Edge, 0, len(doc.Edges)),
	}

	for _, nd := range doc.Nodes {
		node := domain.NewNode(nd.ID, nd.Data.Title, domain.Color(nd.Data.AccentColor),
			domain.NewPosition(nd.Position.X, nd.Position.Y))
		if nd.Data.Subtitle != nil {
			node.Subtitle = domain.StringPtr(*nd.Data.Subtitle)
		}
		for _, pd := range nd.Data.Inputs {
			node.Inputs = append(node.Inputs, docToPort(pd, domain.DirectionInput))
		}
		for _, pd := range nd.Data.Outputs {
			node.Outputs = append(node.Outputs, docToPort(pd, domain.DirectionOutput))
		}
		snap.Nodes = append(snap.Nodes, *node)
	}

	for _, ed := range doc.Edges {
		_, sourcePort, _ := domain.ParseHandle(ed.SourceHandle)
		_, targetPort, _ := domain.ParseHandle(ed.TargetHandle)

		width := ed.Style.StrokeWidth
		if width <= 0 {
			width = domain.DefaultStrokeWidth
		}
		snap.Edges = append(snap.Edges, domain.Edge{
			ID:           ed.ID,
			SourceNodeID: ed.Source,
			SourcePortID: sourcePort,
			TargetNodeID: ed.Target,
			TargetPortID: targetPort,
			StrokeColor:  domain.Color(ed.Style.Stroke),
			StrokeWidth:  width,
		})
	}

	if err := domain.ValidateSnapshot(snap); err != nil {
		if errors.Is(err, domain.ErrDuplicateID) || errors.Is(err, domain.ErrEmptyColor) {
			return domain.Snapshot{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		return domain.Snapshot{}, err
	}

	fillMissingStrokes(&snap)
	return snap, nil
}

func docToPort(pd PortDoc, dir domain.Direction) domain.Port {
	p := domain.Port{ID: pd.ID, Label: pd.Label, Direction: dir}
	if pd.Color != nil {
		p.Color = domain.ColorPtr(domain.Color(*pd.Color))
	}
	if dir == domain.DirectionOutput {
		p.Inherit = pd.Inherit == nil || *pd.Inherit
	}
	return p
}

// fillMissingStrokes gives unstyled edges the current color of their source
// port. Only called on validated snapshots.
func fillMissingStrokes(snap *domain.Snapshot) {
	nodes := make(map[string]*domain.Node, len(snap.Nodes))
	for i := range snap.Nodes {
		nodes[snap.Nodes[i].ID] = &snap.Nodes[i]
	}
	for i := range snap.Edges {
		e := &snap.Edges[i]
		if e.StrokeColor != "" {
			continue
		}
		e.StrokeColor = domain.FallbackStroke
		if n, ok := nodes[e.SourceNodeID]; ok {
			if p, ok := n.Port(domain.DirectionOutput, e.SourcePortID); ok {
				e.StrokeColor = domain.EffectiveColor(n, p)
			}
		}
	}
}

// formatValidationError turns validator output into one readable line
func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Document.")
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("%s must start with %q", field, e.Param()))
		case "eq":
			msgs = append(msgs, fmt.Sprintf("%s must be %q", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
