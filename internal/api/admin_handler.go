package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/lorekeeper/lorekeeper/internal/api/respond"
	"github.com/lorekeeper/lorekeeper/internal/auth"
	"github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/queue"
	"github.com/lorekeeper/lorekeeper/internal/store"
	syncsvc "github.com/lorekeeper/lorekeeper/internal/sync"
)

const (
	campaignTaskTimeout = 30 * time.Minute
	missingTaskTimeout  = 10 * time.Minute
)

// AdminHandler exposes embedding maintenance: forced flushes, coverage
// status, full-scope re-embeds, backfills, and task polling.
type AdminHandler struct {
	hook      *syncsvc.Hook
	tracker   *embeddings.Tracker
	q         queue.TaskQueue
	extractor auth.UserExtractor
}

func NewAdminHandler(hook *syncsvc.Hook, tracker *embeddings.Tracker, q queue.TaskQueue, extractor auth.UserExtractor) *AdminHandler {
	return &AdminHandler{hook: hook, tracker: tracker, q: q, extractor: extractor}
}

// Flush POST /api/admin/embeddings/flush
func (h *AdminHandler) Flush(w http.ResponseWriter, r *http.Request) {
	handle, result, err := h.hook.ForceFlush(r.Context())
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	if handle != nil {
		respond.WriteJSON(w, http.StatusAccepted, handle)
		return
	}
	respond.WriteJSON(w, http.StatusOK, result)
}

// Status GET /api/admin/embeddings/status/{scopeId}
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, err := h.extractor.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	sc := store.Scope{UserID: uid, ScopeID: mux.Vars(r)["scopeId"]}

	status, err := h.tracker.Status(r.Context(), sc)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"embeddings": status,
		"hook":       h.hook.State(),
	})
}

// EmbedCampaign POST /api/admin/embeddings/campaign/{scopeId}?force=true
func (h *AdminHandler) EmbedCampaign(w http.ResponseWriter, r *http.Request) {
	uid, err := h.extractor.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	scopeID := mux.Vars(r)["scopeId"]
	force := r.URL.Query().Get("force") == "true"

	task, err := queue.NewEmbedCampaignTask(uid, scopeID, force)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	handle, err := h.q.Enqueue(r.Context(), queue.QueueLongRunning, task, campaignTaskTimeout)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusAccepted, handle)
}

// EmbedMissing POST /api/admin/embeddings/missing
// Body: {"scopeId": "...", "limit": 100}
func (h *AdminHandler) EmbedMissing(w http.ResponseWriter, r *http.Request) {
	uid, err := h.extractor.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	var req struct {
		ScopeID string `json:"scopeId"`
		Limit   int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.ScopeID == "" {
		respond.WriteBadRequest(w, "scopeId is required")
		return
	}

	task, err := queue.NewEmbedMissingTask(uid, req.ScopeID, req.Limit)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	handle, err := h.q.Enqueue(r.Context(), queue.QueuePriority, task, missingTaskTimeout)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusAccepted, handle)
}

// GetTask GET /api/admin/tasks/{taskId}
func (h *AdminHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	status, err := h.q.Fetch(r.Context(), mux.Vars(r)["taskId"])
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			respond.WriteNotFound(w, "task not found")
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	out := map[string]interface{}{
		"taskId": status.ID,
		"queue":  status.Queue,
		"kind":   status.Kind,
		"state":  status.State,
	}
	if status.Progress != nil {
		out["progress"] = status.Progress
	}
	if status.Error != "" {
		out["error"] = status.Error
	}
	if len(status.Result) > 0 {
		out["result"] = json.RawMessage(status.Result)
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
