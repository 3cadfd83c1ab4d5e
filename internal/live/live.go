// Package live accepts editing intents from the rendering layer over a
// websocket. Each intent gets exactly one acknowledgement, in order.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"nilor/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 64 << 10
)

// Intent types
const (
	IntentMove       = "move"
	IntentConnect    = "connect"
	IntentDisconnect = "disconnect"
)

// ErrBadIntent is reported for intents that fail validation
var ErrBadIntent = errors.New("bad intent")

// Editor is the part of the editing session the canvas drives directly
type Editor interface {
	MoveNode(ctx context.Context, id string, pos domain.Position) error
	Connect(ctx context.Context, sourceNodeID, sourcePortID, targetNodeID, targetPortID string) (*domain.Edge, error)
	Disconnect(ctx context.Context, edgeID string) error
}

// Intent is one message from the canvas. Connect intents carry the handle
// ids the canvas uses ("out-<port>", "in-<port>").
type Intent struct {
	ID           string           `json:"id,omitempty"`
	Type         string           `json:"type" validate:"required,oneof=move connect disconnect"`
	NodeID       string           `json:"node_id,omitempty" validate:"required_if=Type move"`
	Position     *domain.Position `json:"position,omitempty" validate:"required_if=Type move"`
	Source       string           `json:"source,omitempty" validate:"required_if=Type connect"`
	SourceHandle string           `json:"source_handle,omitempty" validate:"required_if=Type connect"`
	Target       string           `json:"target,omitempty" validate:"required_if=Type connect"`
	TargetHandle string           `json:"target_handle,omitempty" validate:"required_if=Type connect"`
	EdgeID       string           `json:"edge_id,omitempty" validate:"required_if=Type disconnect"`
}

// Ack answers one Intent. ID echoes the intent id.
type Ack struct {
	OK     bool   `json:"ok"`
	ID     string `json:"id,omitempty"`
	EdgeID string `json:"edge_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Server upgrades canvas connections and applies their intents
type Server struct {
	upgrader websocket.Upgrader
	editor   Editor
	validate *validator.Validate
	logger   *zap.Logger
	sessions atomic.Int64
}

// NewServer creates a live server. allowedOrigins empty accepts any origin.
func NewServer(editor Editor, logger *zap.Logger, allowedOrigins []string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		editor:   editor,
		validate: validator.New(),
		logger:   logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Sessions returns the number of open connections
func (s *Server) Sessions() int {
	return int(s.sessions.Load())
}

// ServeHTTP upgrades the connection and serves intents until it closes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	sessionID := uuid.NewString()
	logger := s.logger.With(zap.String("session_id", sessionID))
	s.sessions.Add(1)
	defer s.sessions.Add(-1)
	defer conn.Close()
	logger.Debug("live session opened")
	defer logger.Debug("live session closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.ping(ctx, conn)

	conn.SetReadLimit(maxMessage)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var intent Intent
		if err := conn.ReadJSON(&intent); err != nil {
			if !isDecodeError(err) {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("live session closed unexpectedly", zap.Error(err))
				}
				return
			}
			// The frame was read but is not an intent; the session goes on
			if werr := s.write(conn, Ack{Error: fmt.Sprintf("%v: %v", ErrBadIntent, err)}); werr != nil {
				return
			}
			continue
		}

		ack := s.Apply(ctx, intent)
		if !ack.OK {
			logger.Debug("intent rejected", zap.String("type", intent.Type), zap.String("error", ack.Error))
		}
		if err := s.write(conn, ack); err != nil {
			return
		}
	}
}

// Apply runs one intent against the editor
func (s *Server) Apply(ctx context.Context, intent Intent) Ack {
	ack := Ack{ID: intent.ID}
	if err := s.validate.Struct(intent); err != nil {
		ack.Error = fmt.Sprintf("%v: %v", ErrBadIntent, err)
		return ack
	}

	var err error
	switch intent.Type {
	case IntentMove:
		err = s.editor.MoveNode(ctx, intent.NodeID, *intent.Position)
	case IntentConnect:
		var edge *domain.Edge
		edge, err = s.connect(ctx, intent)
		if edge != nil {
			ack.EdgeID = edge.ID
		}
	case IntentDisconnect:
		err = s.editor.Disconnect(ctx, intent.EdgeID)
	}

	if err != nil {
		ack.Error = err.Error()
		return ack
	}
	ack.OK = true
	return ack
}

func (s *Server) connect(ctx context.Context, intent Intent) (*domain.Edge, error) {
	srcDir, srcPort, ok := domain.ParseHandle(intent.SourceHandle)
	if !ok || srcDir != domain.DirectionOutput {
		return nil, fmt.Errorf("source handle %q: %w", intent.SourceHandle, domain.ErrInvalidEndpoint)
	}
	dstDir, dstPort, ok := domain.ParseHandle(intent.TargetHandle)
	if !ok || dstDir != domain.DirectionInput {
		return nil, fmt.Errorf("target handle %q: %w", intent.TargetHandle, domain.ErrInvalidEndpoint)
	}
	return s.editor.Connect(ctx, intent.Source, srcPort, intent.Target, dstPort)
}

func (s *Server) write(conn *websocket.Conn, ack Ack) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ack)
}

// ping keeps the connection alive. WriteControl is safe alongside WriteJSON.
func (s *Server) ping(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
