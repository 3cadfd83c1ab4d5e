package codec

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"

	"nilor/internal/domain"
)

// Node card geometry, in canvas pixels
const (
	cardWidth          = 224
	headerHeight       = 42
	headerWithSubtitle = 56
	cardPadding        = 16
	rowBody            = 20
	rowGap             = 8
	rowHeight          = rowBody + rowGap
	viewMargin         = 40
	handleRadius       = 6
)

// SVGExporter renders a static preview of the graph. It cannot be parsed
// back; the canvas engine remains the real renderer.
type SVGExporter struct{}

// NewSVGExporter creates a new SVG exporter
func NewSVGExporter() *SVGExporter {
	return &SVGExporter{}
}

// Format returns the codec format identifier
func (e *SVGExporter) Format() string {
	return "svg"
}

// Export validates the document and draws its nodes and wires
func (e *SVGExporter) Export(doc *Document, w io.Writer) error {
	snap, err := Deserialize(doc)
	if err != nil {
		return err
	}

	nodes := make(map[string]*domain.Node, len(snap.Nodes))
	for i := range snap.Nodes {
		nodes[snap.Nodes[i].ID] = &snap.Nodes[i]
	}

	minX, minY, maxX, maxY := bounds(snap.Nodes)
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%g %g %g %g" style="background:#000">`+"\n",
		minX-viewMargin, minY-viewMargin, maxX-minX+2*viewMargin, maxY-minY+2*viewMargin)

	for _, edge := range snap.Edges {
		src, dst := nodes[edge.SourceNodeID], nodes[edge.TargetNodeID]
		sx, sy := portAnchor(src, domain.DirectionOutput, edge.SourcePortID)
		ex, ey := portAnchor(dst, domain.DirectionInput, edge.TargetPortID)
		path := WirePath(sx, sy, ex, ey)
		fmt.Fprintf(bw, `<path d="%s" fill="none" stroke="%s" stroke-width="%g" opacity="0.3"/>`+"\n",
			path, html.EscapeString(edge.StrokeColor.String()), edge.StrokeWidth+4)
		fmt.Fprintf(bw, `<path d="%s" fill="none" stroke="%s" stroke-width="%g" opacity="0.9"/>`+"\n",
			path, html.EscapeString(edge.StrokeColor.String()), edge.StrokeWidth)
	}

	for i := range snap.Nodes {
		writeNode(bw, &snap.Nodes[i])
	}

	fmt.Fprintln(bw, "</svg>")
	return bw.Flush()
}

// WirePath returns the SVG path of a wire between two points. The control
// points are pushed horizontally by half the horizontal gap plus 50px so
// wires leave outputs to the right and enter inputs from the left.
func WirePath(startX, startY, endX, endY float64) string {
	offset := math.Abs(endX-startX)*0.5 + 50
	return fmt.Sprintf("M %g %g C %g %g %g %g %g %g",
		startX, startY, startX+offset, startY, endX-offset, endY, endX, endY)
}

func writeNode(w io.Writer, n *domain.Node) {
	x, y := n.Position.X, n.Position.Y
	header := nodeHeader(n)
	height := nodeHeight(n)
	accent := html.EscapeString(n.AccentColor.String())

	fmt.Fprintf(w, `<g id="node-%s">`+"\n", html.EscapeString(n.ID))
	fmt.Fprintf(w, `<rect x="%g" y="%g" width="%d" height="%g" rx="8" fill="#1f2937" stroke="#374151"/>`+"\n",
		x, y, cardWidth, height)
	fmt.Fprintf(w, `<rect x="%g" y="%g" width="%d" height="%g" rx="8" fill="%s"/>`+"\n",
		x, y, cardWidth, header, accent)
	fmt.Fprintf(w, `<text x="%g" y="%g" fill="#fff" font-weight="bold" text-anchor="middle">%s</text>`+"\n",
		x+cardWidth/2, y+26, html.EscapeString(n.Title))
	if n.Subtitle != nil {
		fmt.Fprintf(w, `<text x="%g" y="%g" fill="#fff" opacity="0.9" font-size="12" text-anchor="middle">%s</text>`+"\n",
			x+cardWidth/2, y+46, html.EscapeString(*n.Subtitle))
	}

	for _, dir := range []domain.Direction{domain.DirectionInput, domain.DirectionOutput} {
		for i := range n.Ports(dir) {
			p := &n.Ports(dir)[i]
			px, py := portAnchor(n, dir, p.ID)
			fmt.Fprintf(w, `<circle cx="%g" cy="%g" r="%d" fill="%s" stroke="#4b5563" stroke-width="2"/>`+"\n",
				px, py, handleRadius, html.EscapeString(domain.EffectiveColor(n, p).String()))

			lx, anchor := px+cardPadding, "start"
			if dir == domain.DirectionOutput {
				lx, anchor = px-cardPadding, "end"
			}
			fmt.Fprintf(w, `<text x="%g" y="%g" fill="#d1d5db" font-size="13" text-anchor="%s">%s</text>`+"\n",
				lx, py+4, anchor, html.EscapeString(p.Label))
		}
	}
	fmt.Fprintln(w, "</g>")
}

func nodeHeader(n *domain.Node) float64 {
	if n.Subtitle != nil {
		return headerWithSubtitle
	}
	return headerHeight
}

func nodeHeight(n *domain.Node) float64 {
	rows := max(len(n.Inputs), len(n.Outputs))
	height := nodeHeader(n) + 2*cardPadding
	if rows > 0 {
		height += float64(rows*rowHeight - rowGap)
	}
	return height
}

// portAnchor returns the center of a port's handle. Unknown ports anchor at
// the node's top corner on their side.
func portAnchor(n *domain.Node, dir domain.Direction, portID string) (float64, float64) {
	x := n.Position.X
	if dir == domain.DirectionOutput {
		x += cardWidth
	}
	for i, p := range n.Ports(dir) {
		if p.ID == portID {
			return x, n.Position.Y + nodeHeader(n) + cardPadding + float64(i*rowHeight) + rowBody/2
		}
	}
	return x, n.Position.Y
}

func bounds(nodes []domain.Node) (minX, minY, maxX, maxY float64) {
	if len(nodes) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for i := range nodes {
		n := &nodes[i]
		minX = math.Min(minX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxX = math.Max(maxX, n.Position.X+cardWidth)
		maxY = math.Max(maxY, n.Position.Y+nodeHeight(n))
	}
	return minX, minY, maxX, maxY
}
