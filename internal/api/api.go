// Package api exposes the query contract over plain HTTP, next to the
// WebSocket channel: history windows from Postgres and the latest value from
// the hot cache.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/duckception/wbudowane-backend/internal/query"
	"github.com/duckception/wbudowane-backend/internal/reading"
)

// LatestReader is the hot-cache half of the repository.
type LatestReader interface {
	LatestValue(ctx context.Context, room string, kind reading.Kind) (string, bool, error)
}

type APIHandler struct {
	engine *query.Engine
	latest LatestReader
	logger *slog.Logger
}

func NewAPIHandler(engine *query.Engine, latest LatestReader, logger *slog.Logger) *APIHandler {
	return &APIHandler{engine: engine, latest: latest, logger: logger}
}

// RegisterRoutes maps the endpoints onto a mux (Go 1.22 method routing).
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms/{id}/data", h.handleRoomData)
	mux.HandleFunc("GET /api/rooms/{id}/latest", h.handleRoomLatest)
}

// handleRoomData: GET /api/rooms/{id}/data?kind=T&limit=17
func (h *APIHandler) handleRoomData(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")

	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "ALL"
	}

	limit := query.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	resp, err := h.engine.Query(r.Context(), roomID, kind, limit)
	if err != nil {
		h.logger.Error("History query failed", "room", roomID, "kind", kind, "error", err)
		http.Error(w, "cannot load readings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, resp)
}

// handleRoomLatest: GET /api/rooms/{id}/latest?kind=T
func (h *APIHandler) handleRoomLatest(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")

	raw := strings.ToUpper(r.URL.Query().Get("kind"))
	if len(raw) != 1 || !reading.Kind(raw[0]).Valid() {
		http.Error(w, "kind must be one of T, H, L, R, P", http.StatusBadRequest)
		return
	}
	kind := reading.Kind(raw[0])

	value, found, err := h.latest.LatestValue(r.Context(), reading.RoomName(roomID), kind)
	if err != nil {
		h.logger.Error("Hot cache read failed", "room", roomID, "kind", raw, "error", err)
		http.Error(w, "cannot load latest value", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "no recent value", http.StatusNotFound)
		return
	}

	writeJSON(w, h.logger, map[string]string{
		"room":  roomID,
		"kind":  kind.String(),
		"value": value,
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Cannot write JSON response", "error", err)
	}
}
