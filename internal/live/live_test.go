package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"nilor/internal/domain"
	"nilor/internal/repository/memory"
	"nilor/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor() *service.Editor {
	return service.NewEditor(memory.New(), nil,
		service.WithGenerator(domain.NewRandomGenerator(3)),
		service.WithSampleGraph(),
	)
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, intent any) Ack {
	t.Helper()
	require.NoError(t, conn.WriteJSON(intent))
	var ack Ack
	require.NoError(t, conn.ReadJSON(&ack))
	return ack
}

func TestSessionIntents(t *testing.T) {
	editor := newTestEditor()
	conn := dial(t, NewServer(editor, nil, nil))

	ack := send(t, conn, Intent{ID: "1", Type: IntentMove, NodeID: "in1", Position: &domain.Position{X: 9, Y: 8}})
	assert.Equal(t, Ack{OK: true, ID: "1"}, ack)
	node, err := editor.Node("in1")
	require.NoError(t, err)
	assert.Equal(t, domain.Position{X: 9, Y: 8}, node.Position)

	ack = send(t, conn, Intent{ID: "2", Type: IntentConnect,
		Source: "in1", SourceHandle: "out-out", Target: "out", TargetHandle: "in-in"})
	require.True(t, ack.OK, ack.Error)
	edge, err := editor.Edge(ack.EdgeID)
	require.NoError(t, err)
	assert.Equal(t, domain.Color("#10B981"), edge.StrokeColor)

	ack = send(t, conn, Intent{ID: "3", Type: IntentDisconnect, EdgeID: ack.EdgeID})
	assert.True(t, ack.OK, ack.Error)
	assert.Len(t, editor.Edges(), 3)
}

func TestSessionRejections(t *testing.T) {
	editor := newTestEditor()
	conn := dial(t, NewServer(editor, nil, nil))

	tests := []struct {
		name   string
		intent any
		want   string
	}{
		{"unknown type", Intent{ID: "a", Type: "zoom"}, "bad intent"},
		{"move without position", Intent{ID: "b", Type: IntentMove, NodeID: "in1"}, "bad intent"},
		{"move unknown node", Intent{ID: "c", Type: IntentMove, NodeID: "ghost", Position: &domain.Position{}}, "not found"},
		{"connect input to output", Intent{ID: "d", Type: IntentConnect,
			Source: "out", SourceHandle: "in-in", Target: "in1", TargetHandle: "out-out"}, "invalid endpoint"},
		{"disconnect unknown edge", Intent{ID: "e", Type: IntentDisconnect, EdgeID: "ghost"}, "not found"},
		{"not json", "just text", "bad intent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := send(t, conn, tt.intent)
			assert.False(t, ack.OK)
			assert.Contains(t, ack.Error, tt.want)
		})
	}

	assert.Len(t, editor.Edges(), 3, "rejected intents change nothing")
}

func TestOriginCheck(t *testing.T) {
	ts := httptest.NewServer(NewServer(newTestEditor(), nil, []string{"http://canvas.local"}))
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://canvas.local"}})
	require.NoError(t, err)
	conn.Close()
}

func TestApplyWithoutConnection(t *testing.T) {
	srv := NewServer(newTestEditor(), nil, nil)
	ack := srv.Apply(context.Background(), Intent{Type: IntentDisconnect, EdgeID: "e-in1-proc"})
	assert.True(t, ack.OK)
	assert.Equal(t, 0, srv.Sessions())
}
