package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"nilor/internal/codec"
	"nilor/internal/domain"
	"nilor/internal/metrics"
	"nilor/internal/repository"
	"nilor/internal/repository/memory"
	"nilor/internal/repository/sqlite"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// failingStore counts calls and fails every operation
type failingStore struct {
	mu    sync.Mutex
	saves int
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Load(ctx context.Context) ([]byte, error) {
	return nil, errors.Join(repository.ErrStorageUnavailable, errDiskFull)
}

func (s *failingStore) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return errors.Join(repository.ErrStorageUnavailable, errDiskFull)
}

func (s *failingStore) Clear(ctx context.Context) error {
	return errors.Join(repository.ErrStorageUnavailable, errDiskFull)
}

func (s *failingStore) Close() error { return nil }

func newTestEditor(t *testing.T, store repository.Store, opts ...Option) *Editor {
	t.Helper()
	base := []Option{WithGenerator(domain.NewRandomGenerator(7)), WithLogger(zap.NewNop())}
	return NewEditor(store, NewEventBus(), append(base, opts...)...)
}

func savedSnapshot(t *testing.T, store *memory.Store) domain.Snapshot {
	t.Helper()
	data, err := store.Load(context.Background())
	require.NoError(t, err)
	doc, err := codec.UnmarshalDocument(data)
	require.NoError(t, err)
	snap, err := codec.Deserialize(doc)
	require.NoError(t, err)
	return snap
}

func TestAutosaveAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ed := newTestEditor(t, store)

	src, err := ed.AddNode(ctx, domain.NodeKindSource, nil)
	require.NoError(t, err)
	dst, err := ed.AddNode(ctx, domain.NodeKindSink, &domain.Position{X: 500, Y: 100})
	require.NoError(t, err)
	assert.Equal(t, domain.Position{X: 500, Y: 100}, dst.Position)

	edge, err := ed.Connect(ctx, src.ID, src.Outputs[0].ID, dst.ID, dst.Inputs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Saves())

	saved := savedSnapshot(t, store)
	require.Len(t, saved.Edges, 1)
	assert.Equal(t, edge.ID, saved.Edges[0].ID)
	assert.Empty(t, cmp.Diff(codec.Serialize(saved), ed.Snapshot(), cmpopts.EquateEmpty()))
}

func TestFailedMutationDoesNotSave(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ed := newTestEditor(t, store)

	_, err := ed.AddNode(ctx, "widget", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
	assert.ErrorIs(t, ed.RemoveNode(ctx, "ghost"), domain.ErrNotFound)
	_, err = ed.Connect(ctx, "a", "b", "c", "d")
	assert.ErrorIs(t, err, domain.ErrInvalidEndpoint)

	assert.Equal(t, 0, store.Saves())
}

func TestFailingStoreKeepsGraph(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	collector := metrics.NewCollector("test")
	ed := newTestEditor(t, store, WithMetrics(collector))

	events := make(chan Event, 10)
	ed.EventBus().Subscribe(events)

	node, err := ed.AddNode(ctx, domain.NodeKindTransform, nil)
	require.NoError(t, err, "a failed save is not a failed mutation")

	_, err = ed.Node(node.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.ErrorIs(t, ed.LastSaveError(), repository.ErrStorageUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Autosaves.WithLabelValues("error")))

	assert.Equal(t, EventAutosaveFailed, (<-events).Type)
	assert.Equal(t, EventNodeCreated, (<-events).Type)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("missing document keeps initial graph", func(t *testing.T) {
		ed := newTestEditor(t, memory.New(), WithSampleGraph())
		require.NoError(t, ed.Load(ctx))
		assert.Len(t, ed.Nodes(), 4)
	})

	t.Run("stored document replaces graph", func(t *testing.T) {
		store := memory.New()
		data, err := codec.MarshalDocument(codec.Serialize(domain.SampleSnapshot()))
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, data))

		ed := newTestEditor(t, store)
		require.NoError(t, ed.Load(ctx))
		assert.Len(t, ed.Nodes(), 4)
		assert.Len(t, ed.Edges(), 3)
	})

	t.Run("logs when the autosave was written", func(t *testing.T) {
		store, err := sqlite.New(":memory:")
		require.NoError(t, err)
		defer store.Close()
		data, err := codec.MarshalDocument(codec.Serialize(domain.SampleSnapshot()))
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, data))

		core, logs := observer.New(zap.InfoLevel)
		ed := newTestEditor(t, store, WithLogger(zap.New(core)))
		require.NoError(t, ed.Load(ctx))

		loaded := logs.FilterMessage("loaded autosave").All()
		require.Len(t, loaded, 1)
		assert.Contains(t, loaded[0].ContextMap(), "saved_at")
		assert.EqualValues(t, 4, loaded[0].ContextMap()["nodes"])
	})

	t.Run("malformed document keeps prior graph", func(t *testing.T) {
		store := memory.New()
		require.NoError(t, store.Save(ctx, []byte(`{"nodes": "nope"}`)))

		ed := newTestEditor(t, store, WithSampleGraph())
		err := ed.Load(ctx)
		assert.ErrorIs(t, err, codec.ErrMalformedDocument)
		assert.Len(t, ed.Nodes(), 4)
	})

	t.Run("dangling document keeps prior graph", func(t *testing.T) {
		doc := codec.Serialize(domain.SampleSnapshot())
		doc.Edges[0].Target = "ghost"
		data, err := codec.MarshalDocument(doc)
		require.NoError(t, err)
		store := memory.New()
		require.NoError(t, store.Save(ctx, data))

		ed := newTestEditor(t, store)
		assert.ErrorIs(t, ed.Load(ctx), domain.ErrDanglingReference)
		assert.Empty(t, ed.Nodes())
	})

	t.Run("unavailable store keeps prior graph", func(t *testing.T) {
		ed := newTestEditor(t, &failingStore{}, WithSampleGraph())
		assert.ErrorIs(t, ed.Load(ctx), repository.ErrStorageUnavailable)
		assert.Len(t, ed.Nodes(), 4)
	})
}

func TestUpdateNodeIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ed := newTestEditor(t, store, WithSampleGraph())

	title := "Renamed"
	accent := domain.Color("#E74C3C")
	_, err := ed.UpdateNode(ctx, "ghost", NodePatch{Title: &title, AccentColor: &accent})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, store.Saves())

	show := true
	node, err := ed.UpdateNode(ctx, "proc", NodePatch{
		Title:        &title,
		AccentColor:  &accent,
		ShowSubtitle: &show,
		Position:     &domain.Position{X: 1, Y: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", node.Title)
	assert.Equal(t, accent, node.AccentColor)
	require.NotNil(t, node.Subtitle)
	assert.Equal(t, domain.DefaultSubtitle, *node.Subtitle)
	assert.Equal(t, domain.Position{X: 1, Y: 2}, node.Position)
	assert.Equal(t, 1, store.Saves())

	before := ed.Snapshot()
	empty := domain.Color("")
	other := "Other"
	_, err = ed.UpdateNode(ctx, "proc", NodePatch{Title: &other, AccentColor: &empty})
	require.ErrorIs(t, err, domain.ErrEmptyColor)
	assert.Equal(t, before, ed.Snapshot(), "rejected patch leaves the node alone")
	assert.Equal(t, 1, store.Saves())

	hide := false
	text := "stereo"
	node, err = ed.UpdateNode(ctx, "proc", NodePatch{ShowSubtitle: &hide, Subtitle: &text})
	require.NoError(t, err)
	require.NotNil(t, node.Subtitle, "subtitle text is applied after the toggle")
	assert.Equal(t, "stereo", *node.Subtitle)
}

func TestUpdatePort(t *testing.T) {
	ctx := context.Background()
	ed := newTestEditor(t, memory.New(), WithSampleGraph())

	red := domain.Color("#FF0000")
	node, err := ed.UpdatePort(ctx, "in1", domain.DirectionOutput, "out", PortPatch{Color: &red})
	require.NoError(t, err)
	assert.False(t, node.Outputs[0].Inherit)

	color, err := ed.PortColor("in1", domain.DirectionOutput, "out")
	require.NoError(t, err)
	assert.Equal(t, red, color)

	_, err = ed.UpdatePort(ctx, "in1", domain.DirectionOutput, "out", PortPatch{ResetColor: true})
	require.NoError(t, err)
	color, err = ed.PortColor("in1", domain.DirectionOutput, "out")
	require.NoError(t, err)
	assert.Equal(t, domain.Color("#10B981"), color)

	label := "Mix"
	node, err = ed.UpdatePort(ctx, "proc", domain.DirectionInput, "in1", PortPatch{Label: &label, ResetColor: true})
	require.NoError(t, err)
	assert.Equal(t, "Mix", node.Inputs[0].Label)
	assert.Nil(t, node.Inputs[0].Color)

	_, err = ed.UpdatePort(ctx, "proc", domain.DirectionInput, "ghost", PortPatch{Label: &label})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPortLifecycle(t *testing.T) {
	ctx := context.Background()
	ed := newTestEditor(t, memory.New(), WithSampleGraph())

	node, portID, err := ed.AddPort(ctx, "proc", domain.DirectionInput, "")
	require.NoError(t, err)
	assert.Len(t, node.Inputs, 3)
	assert.Equal(t, "Input 3", node.Inputs[2].Label)

	require.NoError(t, ed.RemovePort(ctx, "proc", domain.DirectionInput, "in1"))
	require.NoError(t, ed.RemovePort(ctx, "proc", domain.DirectionInput, portID))
	assert.Len(t, ed.Edges(), 2, "edge into removed port is gone")

	require.NoError(t, ed.Disconnect(ctx, "e-in2-out"))
	assert.ErrorIs(t, ed.Disconnect(ctx, "e-in2-out"), domain.ErrNotFound)
}

func TestImportExport(t *testing.T) {
	ctx := context.Background()
	src := newTestEditor(t, memory.New(), WithSampleGraph())

	var buf bytes.Buffer
	require.NoError(t, src.Export("yaml", &buf))

	dst := newTestEditor(t, memory.New())
	require.NoError(t, dst.Import(ctx, "yml", &buf))
	assert.Empty(t, cmp.Diff(src.Snapshot(), dst.Snapshot(), cmpopts.EquateEmpty()))

	err := dst.Import(ctx, "json", strings.NewReader(`{"nodes": []}`))
	assert.ErrorIs(t, err, codec.ErrMalformedDocument)
	assert.Len(t, dst.Nodes(), 4, "failed import keeps the graph")

	assert.ErrorIs(t, dst.Export("pdf", &buf), codec.ErrUnsupportedFormat)
}

func TestClearAutosave(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ed := newTestEditor(t, store, WithSampleGraph())

	require.NoError(t, ed.MoveNode(ctx, "in1", domain.Position{X: 5, Y: 5}))
	require.NoError(t, ed.ClearAutosave(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, repository.ErrNoDocument)
	assert.Len(t, ed.Nodes(), 4, "clearing storage keeps the canvas")

	assert.ErrorIs(t, newTestEditor(t, &failingStore{}).ClearAutosave(ctx), repository.ErrStorageUnavailable)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	fast := make(chan Event, 1)
	slow := make(chan Event)
	bus.Subscribe(fast)
	bus.Subscribe(slow)

	bus.Publish(Event{Type: EventNodeCreated})
	assert.Equal(t, EventNodeCreated, (<-fast).Type)

	bus.Unsubscribe(fast)
	bus.Publish(Event{Type: EventNodeDeleted})
	assert.Empty(t, fast)
}
