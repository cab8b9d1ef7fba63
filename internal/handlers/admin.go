package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/store"
	catsync "github.com/example/movie-platform/internal/sync"
)

// AdminHandler exposes the sync control surface. All routes require an
// admin-role token; the router wires that middleware in.
type AdminHandler struct {
	Log         *zap.Logger
	Coordinator *catsync.Coordinator
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/v1/admin/sync/movies", h.startSync)
	r.Get("/v1/admin/sync/status", h.syncStatus)
	r.Get("/v1/admin/sync/last", h.lastSync)
}

type startSyncResponse struct {
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	StartedAt time.Time `json:"started_at"`
}

// startSync admits a background sync run. mode selects full (default) or
// changes; resume=true makes a full run continue from the last failed
// checkpoint. A run already in flight yields 409.
func (h *AdminHandler) startSync(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	runType := catsync.RunMovies
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "full":
	case "changes":
		runType = catsync.RunChanges
	default:
		api.BadRequest(w, "INVALID_MODE", "mode must be 'full' or 'changes'", rid, map[string]any{"mode": mode})
		return
	}
	resume := r.URL.Query().Get("resume") == "true"

	info, err := h.Coordinator.Start(runType, resume)
	if err != nil {
		if conflict, ok := err.(*catsync.ConflictError); ok {
			api.Conflict(w, "SYNC_IN_PROGRESS", conflict.Error(), rid, map[string]any{"active_type": string(conflict.Active)})
			return
		}
		h.Log.Error("start sync failed", zap.Error(err))
		api.Internal(w, rid)
		return
	}

	api.WriteJSON(w, http.StatusAccepted, startSyncResponse{
		Message:   info.Message,
		Type:      string(info.Type),
		StartedAt: info.StartedAt,
	})
}

// syncStatus serves the live snapshot when a run has happened in this
// process, otherwise falls back to the most recent persisted run.
func (h *AdminHandler) syncStatus(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	snap, seen := h.Coordinator.Status()
	if seen {
		api.WriteJSON(w, http.StatusOK, snap)
		return
	}

	last, err := h.Coordinator.LastRun(r.Context())
	if err != nil {
		h.Log.Error("load last sync log failed", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	if last == nil {
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"is_running": false,
			"message":    "No sync has been run yet",
		})
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"is_running": false,
		"last_run":   syncLogView(last),
	})
}

type syncLogResponse struct {
	ID                 string    `json:"id"`
	LastSyncAt         time.Time `json:"last_sync_at"`
	TotalInserted      int       `json:"total_inserted"`
	TotalUpdated       int       `json:"total_updated"`
	Status             string    `json:"status"`
	LastSyncedEndpoint string    `json:"last_synced_endpoint,omitempty"`
	LastSyncedPage     *int      `json:"last_synced_page,omitempty"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func syncLogView(l *store.SyncLog) syncLogResponse {
	out := syncLogResponse{
		ID:                 l.ID.String(),
		LastSyncAt:         l.LastSyncAt,
		TotalInserted:      l.TotalInserted,
		TotalUpdated:       l.TotalUpdated,
		Status:             l.Status,
		LastSyncedEndpoint: l.LastSyncedEndpoint,
		ErrorMessage:       l.ErrorMessage,
		CreatedAt:          l.CreatedAt,
	}
	if l.LastSyncedEndpoint != "" {
		page := l.LastSyncedPage
		out.LastSyncedPage = &page
	}
	return out
}

func (h *AdminHandler) lastSync(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	last, err := h.Coordinator.LastRun(r.Context())
	if err != nil {
		h.Log.Error("load last sync log failed", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	if last == nil {
		api.NotFound(w, "NO_SYNC_RUNS", "No sync has been run yet", rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, syncLogView(last))
}
