package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"nilor/internal/codec"
	"nilor/internal/domain"
	"nilor/internal/metrics"
	"nilor/internal/repository"

	"go.uber.org/zap"
)

// Editor serializes access to one graph and keeps its autosave current
type Editor struct {
	mu       sync.Mutex
	graph    *domain.Graph
	store    repository.Store
	eventBus *EventBus
	metrics  *metrics.Collector
	logger   *zap.Logger

	lastSaveErr error
}

// timestamped is implemented by stores that record when they were last
// written
type timestamped interface {
	UpdatedAt(ctx context.Context) (*time.Time, error)
}

// Option configures an Editor
type Option func(*Editor)

// WithGenerator sets the id, color and position source for new nodes
func WithGenerator(gen domain.Generator) Option {
	return func(e *Editor) {
		e.graph = domain.NewGraph(gen)
	}
}

// WithMetrics records mutations and autosaves on c
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Editor) {
		e.metrics = c
	}
}

// WithLogger sets the editor's logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithSampleGraph starts the session from the sample graph instead of an
// empty canvas
func WithSampleGraph() Option {
	return func(e *Editor) {
		if err := e.graph.Restore(domain.SampleSnapshot()); err != nil {
			panic(fmt.Sprintf("sample graph is invalid: %v", err))
		}
	}
}

// NewEditor creates an editor saving to store. Options apply in order, so
// WithSampleGraph must come after WithGenerator.
func NewEditor(store repository.Store, eventBus *EventBus, opts ...Option) *Editor {
	e := &Editor{
		graph:    domain.NewGraph(nil),
		store:    store,
		eventBus: eventBus,
		logger:   zap.NewNop(),
	}
	if e.eventBus == nil {
		e.eventBus = NewEventBus()
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics.SetGraphSize(e.graph.Len())
	return e
}

// EventBus returns the bus mutations are published on
func (e *Editor) EventBus() *EventBus {
	return e.eventBus
}

// ============================================================================
// Session lifecycle
// ============================================================================

// Load replaces the graph with the stored document, if there is one. Any
// failure leaves the current graph in place.
func (e *Editor) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.store.Load(ctx)
	if errors.Is(err, repository.ErrNoDocument) {
		e.logger.Info("no autosave found, starting with initial graph")
		return nil
	}
	if err != nil {
		e.logger.Warn("failed to read autosave", zap.Error(err))
		return fmt.Errorf("failed to load autosave: %w", err)
	}

	doc, err := codec.UnmarshalDocument(data)
	if err == nil {
		err = e.restore(doc)
	}
	if err != nil {
		e.logger.Warn("ignoring unreadable autosave", zap.Error(err))
		return fmt.Errorf("failed to load autosave: %w", err)
	}

	nodes, edges := e.graph.Len()
	fields := []zap.Field{zap.Int("nodes", nodes), zap.Int("edges", edges)}
	if ts, ok := e.store.(timestamped); ok {
		if at, err := ts.UpdatedAt(ctx); err == nil && at != nil {
			fields = append(fields, zap.Time("saved_at", *at))
		}
	}
	e.logger.Info("loaded autosave", fields...)
	e.eventBus.Publish(Event{Type: EventGraphReloaded, Payload: map[string]int{"nodes": nodes, "edges": edges}})
	return nil
}

// Snapshot returns the graph as a document
func (e *Editor) Snapshot() *codec.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return codec.Serialize(e.graph.Snapshot())
}

// Restore replaces the whole graph with doc. Nothing changes if doc is
// invalid.
func (e *Editor) Restore(ctx context.Context, doc *codec.Document) error {
	return e.mutate(ctx, "restore", func(g *domain.Graph) (Event, error) {
		if err := e.restore(doc); err != nil {
			return Event{}, err
		}
		nodes, edges := g.Len()
		return Event{Type: EventGraphReloaded, Payload: map[string]int{"nodes": nodes, "edges": edges}}, nil
	})
}

func (e *Editor) restore(doc *codec.Document) error {
	snap, err := codec.Deserialize(doc)
	if err != nil {
		return err
	}
	if err := e.graph.Restore(snap); err != nil {
		return err
	}
	e.metrics.SetGraphSize(e.graph.Len())
	return nil
}

// Import parses r in format and restores the graph from it
func (e *Editor) Import(ctx context.Context, format string, r io.Reader) error {
	importer, err := codec.NewImporter(format)
	if err != nil {
		return err
	}
	doc, err := importer.Parse(r)
	if err != nil {
		return err
	}
	return e.Restore(ctx, doc)
}

// Export writes the graph to w in format
func (e *Editor) Export(format string, w io.Writer) error {
	exporter, err := codec.NewExporter(format)
	if err != nil {
		return err
	}
	return exporter.Export(e.Snapshot(), w)
}

// ClearAutosave deletes the stored document. The in-memory graph is kept.
func (e *Editor) ClearAutosave(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Clear(ctx); err != nil {
		e.logger.Warn("failed to clear autosave", zap.Error(err))
		return err
	}
	e.lastSaveErr = nil
	e.eventBus.Publish(Event{Type: EventAutosaveCleared})
	return nil
}

// LastSaveError returns the error of the most recent autosave, or nil
func (e *Editor) LastSaveError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSaveErr
}

// ============================================================================
// Reads
// ============================================================================

// Node returns a copy of one node
func (e *Editor) Node(id string) (*domain.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Node(id)
}

// Nodes returns copies of all nodes in creation order
func (e *Editor) Nodes() []domain.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Nodes()
}

// Edge returns a copy of one edge
func (e *Editor) Edge(id string) (*domain.Edge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Edge(id)
}

// Edges returns copies of all edges in creation order
func (e *Editor) Edges() []domain.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Edges()
}

// PortColor returns the color a port is drawn with
func (e *Editor) PortColor(nodeID string, dir domain.Direction, portID string) (domain.Color, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.PortColor(nodeID, dir, portID)
}

// ============================================================================
// Node mutations
// ============================================================================

// AddNode creates a node of kind. A nil position places it at random.
func (e *Editor) AddNode(ctx context.Context, kind domain.NodeKind, pos *domain.Position) (*domain.Node, error) {
	var node *domain.Node
	err := e.mutate(ctx, "add_node", func(g *domain.Graph) (Event, error) {
		var p domain.Position
		if pos != nil {
			p = *pos
		} else {
			p = g.Generator().Position()
		}
		id, err := g.AddNode(kind, p)
		if err != nil {
			return Event{}, err
		}
		node, _ = g.Node(id)
		return Event{Type: EventNodeCreated, Payload: node}, nil
	})
	return node, err
}

// RemoveNode deletes a node and its edges
func (e *Editor) RemoveNode(ctx context.Context, id string) error {
	return e.mutate(ctx, "remove_node", func(g *domain.Graph) (Event, error) {
		if err := g.RemoveNode(id); err != nil {
			return Event{}, err
		}
		return Event{Type: EventNodeDeleted, Payload: map[string]string{"node_id": id}}, nil
	})
}

// NodePatch lists node fields to change. Nil fields are left alone.
// ShowSubtitle is applied before Subtitle, so a subtitle text always ends up
// shown.
type NodePatch struct {
	Title        *string
	Subtitle     *string
	ShowSubtitle *bool
	AccentColor  *domain.Color
	Position     *domain.Position
}

// UpdateNode applies every field of patch, or none of them if the node does
// not exist or the accent color is empty
func (e *Editor) UpdateNode(ctx context.Context, id string, patch NodePatch) (*domain.Node, error) {
	var node *domain.Node
	err := e.mutate(ctx, "update_node", func(g *domain.Graph) (Event, error) {
		if _, err := g.Node(id); err != nil {
			return Event{}, err
		}
		if patch.AccentColor != nil && *patch.AccentColor == "" {
			return Event{}, fmt.Errorf("node %q: %w", id, domain.ErrEmptyColor)
		}
		// Both checks passed, so none of the setters below can fail
		if patch.Title != nil {
			_ = g.RenameNode(id, *patch.Title)
		}
		if patch.AccentColor != nil {
			_ = g.SetAccentColor(id, *patch.AccentColor)
		}
		if patch.ShowSubtitle != nil {
			_ = g.ToggleSubtitle(id, *patch.ShowSubtitle)
		}
		if patch.Subtitle != nil {
			_ = g.SetSubtitle(id, patch.Subtitle)
		}
		if patch.Position != nil {
			_ = g.MoveNode(id, *patch.Position)
		}
		node, _ = g.Node(id)
		return Event{Type: EventNodeUpdated, Payload: node}, nil
	})
	return node, err
}

// MoveNode sets a node's position
func (e *Editor) MoveNode(ctx context.Context, id string, pos domain.Position) error {
	_, err := e.UpdateNode(ctx, id, NodePatch{Position: &pos})
	return err
}

// ============================================================================
// Port mutations
// ============================================================================

// AddPort appends a port and returns the updated node and the new port id
func (e *Editor) AddPort(ctx context.Context, nodeID string, dir domain.Direction, label string) (*domain.Node, string, error) {
	var (
		node   *domain.Node
		portID string
	)
	err := e.mutate(ctx, "add_port", func(g *domain.Graph) (Event, error) {
		var err error
		portID, err = g.AddPort(nodeID, dir, label)
		if err != nil {
			return Event{}, err
		}
		node, _ = g.Node(nodeID)
		return Event{Type: EventPortCreated, Payload: portPayload(nodeID, dir, portID)}, nil
	})
	return node, portID, err
}

// RemovePort deletes a port and the edges attached to it
func (e *Editor) RemovePort(ctx context.Context, nodeID string, dir domain.Direction, portID string) error {
	return e.mutate(ctx, "remove_port", func(g *domain.Graph) (Event, error) {
		if err := g.RemovePort(nodeID, dir, portID); err != nil {
			return Event{}, err
		}
		return Event{Type: EventPortDeleted, Payload: portPayload(nodeID, dir, portID)}, nil
	})
}

// PortPatch lists port fields to change. Color applies to inputs as a stored
// color and to outputs as an override; ResetColor clears either.
type PortPatch struct {
	Label      *string
	Color      *domain.Color
	ResetColor bool
}

// UpdatePort applies patch to one port. The port is checked before any field
// changes.
func (e *Editor) UpdatePort(ctx context.Context, nodeID string, dir domain.Direction, portID string, patch PortPatch) (*domain.Node, error) {
	var node *domain.Node
	err := e.mutate(ctx, "update_port", func(g *domain.Graph) (Event, error) {
		if _, err := g.PortColor(nodeID, dir, portID); err != nil {
			return Event{}, err
		}
		if patch.Label != nil {
			_ = g.RenamePort(nodeID, dir, portID, *patch.Label)
		}
		switch {
		case patch.ResetColor && dir == domain.DirectionOutput:
			_ = g.ResetPortColorOverride(nodeID, portID)
		case patch.ResetColor:
			_ = g.ClearInputColor(nodeID, portID)
		case patch.Color != nil && dir == domain.DirectionOutput:
			_ = g.SetPortColorOverride(nodeID, portID, *patch.Color)
		case patch.Color != nil:
			_ = g.SetInputColor(nodeID, portID, *patch.Color)
		}
		node, _ = g.Node(nodeID)
		return Event{Type: EventPortUpdated, Payload: portPayload(nodeID, dir, portID)}, nil
	})
	return node, err
}

func portPayload(nodeID string, dir domain.Direction, portID string) map[string]string {
	return map[string]string{"node_id": nodeID, "direction": string(dir), "port_id": portID}
}

// ============================================================================
// Edge mutations
// ============================================================================

// Connect creates an edge from an output port to an input port
func (e *Editor) Connect(ctx context.Context, sourceNodeID, sourcePortID, targetNodeID, targetPortID string) (*domain.Edge, error) {
	var edge *domain.Edge
	err := e.mutate(ctx, "connect", func(g *domain.Graph) (Event, error) {
		id, err := g.Connect(sourceNodeID, sourcePortID, targetNodeID, targetPortID)
		if err != nil {
			return Event{}, err
		}
		edge, _ = g.Edge(id)
		return Event{Type: EventEdgeCreated, Payload: edge}, nil
	})
	return edge, err
}

// Disconnect deletes an edge
func (e *Editor) Disconnect(ctx context.Context, edgeID string) error {
	return e.mutate(ctx, "disconnect", func(g *domain.Graph) (Event, error) {
		if err := g.Disconnect(edgeID); err != nil {
			return Event{}, err
		}
		return Event{Type: EventEdgeDeleted, Payload: map[string]string{"edge_id": edgeID}}, nil
	})
}

// ============================================================================
// Mutation plumbing
// ============================================================================

// mutate runs fn under the editor lock. On success the graph is autosaved
// and the returned event published.
func (e *Editor) mutate(ctx context.Context, op string, fn func(g *domain.Graph) (Event, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	event, err := fn(e.graph)
	e.metrics.RecordMutation(op, err)
	if err != nil {
		return err
	}

	e.metrics.SetGraphSize(e.graph.Len())
	e.autosave(ctx)
	e.eventBus.Publish(event)
	return nil
}

// autosave writes the current graph to the store. Caller holds e.mu.
func (e *Editor) autosave(ctx context.Context) {
	start := time.Now()
	err := e.save(ctx)
	e.metrics.RecordAutosave(time.Since(start), err)
	e.lastSaveErr = err
	if err == nil {
		return
	}

	e.logger.Warn("autosave failed", zap.Error(err))
	e.eventBus.Publish(Event{Type: EventAutosaveFailed, Payload: map[string]string{"error": err.Error()}})
}

func (e *Editor) save(ctx context.Context) error {
	data, err := codec.MarshalDocument(codec.Serialize(e.graph.Snapshot()))
	if err != nil {
		return err
	}
	return e.store.Save(ctx, data)
}
