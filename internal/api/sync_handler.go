package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lorekeeper/lorekeeper/internal/api/respond"
	"github.com/lorekeeper/lorekeeper/internal/auth"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/store"
	syncsvc "github.com/lorekeeper/lorekeeper/internal/sync"
)

type SyncHandler struct {
	svc       *syncsvc.Service
	extractor auth.UserExtractor
}

func NewSyncHandler(svc *syncsvc.Service, extractor auth.UserExtractor) *SyncHandler {
	return &SyncHandler{svc: svc, extractor: extractor}
}

// scope resolves caller identity and the scope id from the request. A nil
// scope means the error response was already written.
func (h *SyncHandler) scope(w http.ResponseWriter, r *http.Request) *store.Scope {
	uid, err := h.extractor.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return nil
	}
	return &store.Scope{UserID: uid, ScopeID: mux.Vars(r)["scopeId"]}
}

// sinceTs parses the {ts} path segment as epoch milliseconds.
func sinceTs(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ts, err := strconv.ParseInt(mux.Vars(r)["ts"], 10, 64)
	if err != nil {
		respond.WriteBadRequest(w, "invalid since timestamp")
		return 0, false
	}
	return ts, true
}

// Push POST /api/sync/{scopeId}
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	var changes []model.Change
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.Push(r.Context(), *sc, changes); err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PullNodes GET /api/sync/{scopeId}/nodes/since/{ts}
func (h *SyncHandler) PullNodes(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	ts, ok := sinceTs(w, r)
	if !ok {
		return
	}
	nodes, err := h.svc.PullNodes(r.Context(), *sc, ts)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, nodes)
}

// PullEdges GET /api/sync/{scopeId}/edges/since/{ts}
func (h *SyncHandler) PullEdges(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	ts, ok := sinceTs(w, r)
	if !ok {
		return
	}
	edges, err := h.svc.PullEdges(r.Context(), *sc, ts)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, edges)
}

// PullFolders GET /api/sync/{scopeId}/folders/since/{ts}
func (h *SyncHandler) PullFolders(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	ts, ok := sinceTs(w, r)
	if !ok {
		return
	}
	folders, err := h.svc.PullFolders(r.Context(), *sc, ts)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, folders)
}

// FolderTree GET /api/sync/{scopeId}/folders
func (h *SyncHandler) FolderTree(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	folders, err := h.svc.FolderTree(r.Context(), *sc)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, folders)
}

// PullChats GET /api/sync/{scopeId}/chats/since/{ts}
func (h *SyncHandler) PullChats(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	ts, ok := sinceTs(w, r)
	if !ok {
		return
	}
	chats, err := h.svc.PullChats(r.Context(), *sc, ts)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, chats)
}

// PullChatMessages GET /api/sync/{scopeId}/chat-messages/since/{ts}
func (h *SyncHandler) PullChatMessages(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	ts, ok := sinceTs(w, r)
	if !ok {
		return
	}
	msgs, err := h.svc.PullChatMessages(r.Context(), *sc, ts)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, msgs)
}

// Sidebar GET /api/sync/{scopeId}/sidebar
func (h *SyncHandler) Sidebar(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	nodes, err := h.svc.Sidebar(r.Context(), *sc)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, nodes)
}

// CleanupChats POST /api/sync/{scopeId}/chats/cleanup
func (h *SyncHandler) CleanupChats(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	report, err := h.svc.CleanupChats(r.Context(), *sc)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, report)
}

// CleanupStatus GET /api/sync/{scopeId}/chats/cleanup/status
func (h *SyncHandler) CleanupStatus(w http.ResponseWriter, r *http.Request) {
	sc := h.scope(w, r)
	if sc == nil {
		return
	}
	status, err := h.svc.CleanupStatus(r.Context(), *sc)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, status)
}
