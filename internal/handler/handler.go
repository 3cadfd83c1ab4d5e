package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"nilor/internal/codec"
	"nilor/internal/domain"
	"nilor/internal/repository"
	"nilor/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies, whole graph documents included
const maxBodyBytes = 8 << 20

var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GraphHandler handles graph API requests
type GraphHandler struct {
	editor *service.Editor
	logger *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(editor *service.Editor, logger *zap.Logger) *GraphHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphHandler{editor: editor, logger: logger}
}

// ============================================================================
// Whole graph
// ============================================================================

// GetGraph returns the graph document
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.editor.Snapshot(), http.StatusOK)
}

// PutGraph replaces the graph with the document in the body
func (h *GraphHandler) PutGraph(w http.ResponseWriter, r *http.Request) {
	doc, err := codec.NewJSONCodec().Parse(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, "Invalid graph document", err)
		return
	}
	if err := h.editor.Restore(r.Context(), doc); err != nil {
		h.fail(w, "Failed to replace graph", err)
		return
	}
	h.writeJSON(w, h.editor.Snapshot(), http.StatusOK)
}

// ClearAutosave deletes the stored document and keeps the canvas
func (h *GraphHandler) ClearAutosave(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.ClearAutosave(r.Context()); err != nil {
		h.fail(w, "Failed to clear autosave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export writes the graph in the format named by the path
func (h *GraphHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	exporter, err := codec.NewExporter(format)
	if err != nil {
		h.fail(w, "Unsupported export format", err)
		return
	}

	w.Header().Set("Content-Type", codec.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="nilor-graph.%s"`, exporter.Format()))
	if err := exporter.Export(h.editor.Snapshot(), w); err != nil {
		h.logger.Error("failed to export graph", zap.String("format", format), zap.Error(err))
	}
}

// Import replaces the graph with the body parsed in the format named by the
// path
func (h *GraphHandler) Import(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := h.editor.Import(r.Context(), format, http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		h.fail(w, "Failed to import graph", err)
		return
	}
	h.writeJSON(w, h.editor.Snapshot(), http.StatusOK)
}

// ============================================================================
// Nodes
// ============================================================================

// ListNodes returns all nodes
func (h *GraphHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.editor.Nodes(), http.StatusOK)
}

// GetNode returns a single node
func (h *GraphHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.editor.Node(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get node", err)
		return
	}
	h.writeJSON(w, node, http.StatusOK)
}

// CreateNode adds a node of the requested kind
func (h *GraphHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	kind, err := domain.ParseNodeKind(req.Kind)
	if err != nil {
		h.fail(w, "Failed to create node", err)
		return
	}
	node, err := h.editor.AddNode(r.Context(), kind, req.Position)
	if err != nil {
		h.fail(w, "Failed to create node", err)
		return
	}
	h.writeJSON(w, node, http.StatusCreated)
}

// UpdateNode applies a partial update to a node
func (h *GraphHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	node, err := h.editor.UpdateNode(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		h.fail(w, "Failed to update node", err)
		return
	}
	h.writeJSON(w, node, http.StatusOK)
}

// DeleteNode removes a node and its edges
func (h *GraphHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.RemoveNode(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Ports
// ============================================================================

// AddPortResponse is returned when a port is created
type AddPortResponse struct {
	PortID string       `json:"port_id"`
	Node   *domain.Node `json:"node"`
}

// PortResponse describes one port and the color it is drawn with
type PortResponse struct {
	domain.Port
	NodeID         string       `json:"node_id"`
	EffectiveColor domain.Color `json:"effective_color"`
}

// CreatePort appends a port to a node
func (h *GraphHandler) CreatePort(w http.ResponseWriter, r *http.Request) {
	var req AddPortRequest
	if !h.decode(w, r, &req) {
		return
	}

	dir, _ := domain.ParseDirection(req.Direction)
	node, portID, err := h.editor.AddPort(r.Context(), chi.URLParam(r, "id"), dir, req.Label)
	if err != nil {
		h.fail(w, "Failed to add port", err)
		return
	}
	h.writeJSON(w, AddPortResponse{PortID: portID, Node: node}, http.StatusCreated)
}

// GetPort returns one port with its effective color
func (h *GraphHandler) GetPort(w http.ResponseWriter, r *http.Request) {
	nodeID, dir, portID, ok := h.portParams(w, r)
	if !ok {
		return
	}

	node, err := h.editor.Node(nodeID)
	if err != nil {
		h.fail(w, "Failed to get port", err)
		return
	}
	port, found := node.Port(dir, portID)
	if !found {
		h.fail(w, "Failed to get port", fmt.Errorf("port %q: %w", portID, domain.ErrNotFound))
		return
	}
	h.writeJSON(w, PortResponse{
		Port:           *port,
		NodeID:         nodeID,
		EffectiveColor: domain.EffectiveColor(node, port),
	}, http.StatusOK)
}

// UpdatePort renames or recolors a port
func (h *GraphHandler) UpdatePort(w http.ResponseWriter, r *http.Request) {
	nodeID, dir, portID, ok := h.portParams(w, r)
	if !ok {
		return
	}
	var req UpdatePortRequest
	if !h.decode(w, r, &req) {
		return
	}

	node, err := h.editor.UpdatePort(r.Context(), nodeID, dir, portID, req.patch())
	if err != nil {
		h.fail(w, "Failed to update port", err)
		return
	}
	h.writeJSON(w, node, http.StatusOK)
}

// DeletePort removes a port and the edges attached to it
func (h *GraphHandler) DeletePort(w http.ResponseWriter, r *http.Request) {
	nodeID, dir, portID, ok := h.portParams(w, r)
	if !ok {
		return
	}
	if err := h.editor.RemovePort(r.Context(), nodeID, dir, portID); err != nil {
		h.fail(w, "Failed to delete port", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GraphHandler) portParams(w http.ResponseWriter, r *http.Request) (string, domain.Direction, string, bool) {
	raw := chi.URLParam(r, "direction")
	dir, ok := domain.ParseDirection(raw)
	if !ok {
		h.fail(w, "Invalid port direction", fmt.Errorf("direction %q: %w", raw, domain.ErrNotFound))
		return "", "", "", false
	}
	return chi.URLParam(r, "id"), dir, chi.URLParam(r, "portID"), true
}

// ============================================================================
// Edges
// ============================================================================

// ListEdges returns all edges
func (h *GraphHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.editor.Edges(), http.StatusOK)
}

// GetEdge returns a single edge
func (h *GraphHandler) GetEdge(w http.ResponseWriter, r *http.Request) {
	edge, err := h.editor.Edge(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get edge", err)
		return
	}
	h.writeJSON(w, edge, http.StatusOK)
}

// CreateEdge connects an output port to an input port
func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !h.decode(w, r, &req) {
		return
	}

	sourcePort, targetPort := req.ports()
	edge, err := h.editor.Connect(r.Context(), req.Source, sourcePort, req.Target, targetPort)
	if err != nil {
		h.fail(w, "Failed to connect", err)
		return
	}
	h.writeJSON(w, edge, http.StatusCreated)
}

// DeleteEdge removes an edge
func (h *GraphHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Disconnect(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to disconnect", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse reports liveness and the last autosave outcome
type HealthResponse struct {
	Status   string `json:"status"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	Autosave string `json:"autosave"`
}

// Health reports whether the server is up. A failing autosave degrades the
// status but still answers 200.
func (h *GraphHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Nodes:    len(h.editor.Nodes()),
		Edges:    len(h.editor.Edges()),
		Autosave: "ok",
	}
	if err := h.editor.LastSaveError(); err != nil {
		resp.Status = "degraded"
		resp.Autosave = err.Error()
	}
	h.writeJSON(w, resp, http.StatusOK)
}

// ============================================================================
// Helpers
// ============================================================================

// decode reads and validates a JSON request body. It writes the error reply
// itself and returns false when the request cannot be used.
func (h *GraphHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	if err := validateRequest(dst); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// fail maps err to its status code and writes the error reply
func (h *GraphHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	h.writeError(w, msg, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidEndpoint):
		return http.StatusUnprocessableEntity
	case errors.Is(err, codec.ErrMalformedDocument),
		errors.Is(err, domain.ErrDanglingReference),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrEmptyColor),
		errors.Is(err, codec.ErrUnsupportedFormat),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusInternalServerError
	}
}

func (h *GraphHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", zap.Error(err))
	}
}

func (h *GraphHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
