// ABOUTME: HTTP handlers for the /processor API surface.
// ABOUTME: Node resolution comes from the nodeId query param or X-Node-ID header.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/voxhive/voxhive/internal/config"
	"github.com/voxhive/voxhive/internal/media"
	"github.com/voxhive/voxhive/internal/registry"
)

// Handlers serves the processor API on top of the node registry.
type Handlers struct {
	registry *registry.Registry
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewHandlers wires the processor API to a registry.
func NewHandlers(reg *registry.Registry, tokenTTL time.Duration, logger *slog.Logger) *Handlers {
	return &Handlers{
		registry: reg,
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "api"),
	}
}

// Register installs the processor routes on the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /processor/activate", h.handleActivate)
	mux.HandleFunc("POST /processor/set-config", h.handleSetConfig)
	mux.HandleFunc("GET /processor/get-config", h.handleGetConfig)
	mux.HandleFunc("GET /processor/health", h.handleHealth)
	mux.HandleFunc("GET /processor/getToken", h.handleGetToken)
	mux.HandleFunc("GET /processor/getRooms", h.handleGetRooms)
	mux.HandleFunc("DELETE /processor/cleanup-user", h.handleCleanup)
	mux.HandleFunc("GET /processor/users", h.handleUsers)
	mux.HandleFunc("/processor/", h.handleUnknown)
}

// nodeID resolves the target node from the request: the nodeId query
// parameter wins, then the X-Node-ID header. There is no server-side
// default; the environment default node only exists at boot time.
func nodeID(r *http.Request) (string, bool) {
	if id := r.URL.Query().Get("nodeId"); id != "" {
		return id, true
	}
	if id := r.Header.Get("X-Node-ID"); id != "" {
		return id, true
	}
	return "", false
}

// requireNodeID writes a failure envelope when the request names no node.
func requireNodeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	node, ok := nodeID(r)
	if !ok {
		writeFailure(w, "nodeId is required: pass the nodeId query parameter or the X-Node-ID header")
	}
	return node, ok
}

func decodeNodeConfig(r *http.Request) (config.NodeConfig, error) {
	var cfg config.NodeConfig
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return config.NodeConfig{}, err
	}
	return cfg, nil
}

func (h *Handlers) handleActivate(w http.ResponseWriter, r *http.Request) {
	node, ok := requireNodeID(w, r)
	if !ok {
		return
	}

	cfg, err := decodeNodeConfig(r)
	if err != nil {
		writeValidationFailure(w, []string{err.Error()})
		return
	}

	if err := h.registry.Activate(node, cfg); err != nil {
		if errors.Is(err, registry.ErrInvalidMediaConfig) {
			writeFailure(w, "media apiKey, secret and serverUrl are required")
			return
		}
		writeFailure(w, err.Error())
		return
	}
	writeSuccess(w, fmt.Sprintf("agent activated for node %s", node), nil)
}

func (h *Handlers) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	node, ok := requireNodeID(w, r)
	if !ok {
		return
	}

	cfg, err := decodeNodeConfig(r)
	if err != nil {
		writeValidationFailure(w, []string{err.Error()})
		return
	}

	if err := h.registry.SetConfig(node, cfg); err != nil {
		if errors.Is(err, registry.ErrInvalidMediaConfig) {
			writeValidationFailure(w, []string{"media apiKey, secret and serverUrl are required"})
			return
		}
		writeFailure(w, err.Error())
		return
	}
	writeSuccess(w, fmt.Sprintf("config stored for node %s", node), nil)
}

func (h *Handlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	node, ok := requireNodeID(w, r)
	if !ok {
		return
	}

	cfg, ok := h.registry.Config(node)
	if !ok {
		// an unknown node is not an error: it simply has no config yet
		writeSuccess(w, "", map[string]any{})
		return
	}
	writeSuccess(w, "", cfg)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if node, ok := nodeID(r); ok {
		writeSuccess(w, "", h.registry.NodeHealth(node))
		return
	}
	writeSuccess(w, "", h.registry.ServiceHealth())
}

func (h *Handlers) handleGetToken(w http.ResponseWriter, r *http.Request) {
	node, ok := requireNodeID(w, r)
	if !ok {
		return
	}

	cfg, ok := h.registry.Config(node)
	if !ok {
		writeFailure(w, fmt.Sprintf("no config for node %s", node))
		return
	}

	minter, err := media.NewTokenMinter(cfg.Media, h.tokenTTL)
	if err != nil {
		writeFailure(w, "stored media credentials are incomplete")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "user-" + node
	}
	room := r.URL.Query().Get("room")
	if room == "" {
		room = fmt.Sprintf("room-%s-%s", node, uuid.NewString()[:8])
	}

	token, err := minter.RoomJoinToken(name, room)
	if err != nil {
		writeFailure(w, err.Error())
		return
	}

	writeSuccess(w, "", map[string]string{
		"token":     token,
		"identity":  name,
		"room":      room,
		"nodeId":    node,
		"serverUrl": cfg.Media.ServerURL,
	})
}

func (h *Handlers) handleGetRooms(w http.ResponseWriter, r *http.Request) {
	node, ok := requireNodeID(w, r)
	if !ok {
		return
	}

	// no config behaves like an unreachable media server: an empty list
	rooms := []media.Room{}
	if cfg, ok := h.registry.Config(node); ok {
		rooms = h.listRooms(r.Context(), node, cfg)
	}
	writeSuccess(w, "", map[string]any{"rooms": rooms})
}

// listRooms degrades to an empty list when the media server is unreachable:
// an empty room list is a valid answer, a 500 here is not.
func (h *Handlers) listRooms(ctx context.Context, node string, cfg config.NodeConfig) []media.Room {
	client, err := media.NewRoomClient(cfg.Media, h.tokenTTL)
	if err != nil {
		h.logger.Warn("room client setup failed", "node_id", node, "error", err)
		return []media.Room{}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rooms, err := client.ListRooms(ctx)
	if err != nil {
		h.logger.Warn("listing rooms failed", "node_id", node, "error", err)
		return []media.Room{}
	}
	if rooms == nil {
		rooms = []media.Room{}
	}
	return rooms
}

func (h *Handlers) handleCleanup(w http.ResponseWriter, r *http.Request) {
	node, ok := requireNodeID(w, r)
	if !ok {
		return
	}

	if !h.registry.Cleanup(node) {
		writeFailure(w, fmt.Sprintf("nothing to clean up for node %s", node))
		return
	}
	writeSuccess(w, fmt.Sprintf("agent and config removed for node %s", node), nil)
}

func (h *Handlers) handleUsers(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "", map[string]any{"nodes": h.registry.ListNodes()})
}

func (h *Handlers) handleUnknown(w http.ResponseWriter, r *http.Request) {
	writeNotFound(w, fmt.Sprintf("no such endpoint: %s %s", r.Method, r.URL.Path))
}
