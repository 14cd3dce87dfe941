// Package api wires the HTTP surface: sync push/pull, embedding admin,
// chat retention, and health.
package api

import (
	"github.com/gorilla/mux"

	"github.com/lorekeeper/lorekeeper/internal/api/recovery"
	"github.com/lorekeeper/lorekeeper/internal/auth"
	"github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/queue"
	syncsvc "github.com/lorekeeper/lorekeeper/internal/sync"
)

// Deps carries everything the router needs.
type Deps struct {
	Sync      *syncsvc.Service
	Hook      *syncsvc.Hook
	Tracker   *embeddings.Tracker
	Queue     queue.TaskQueue
	Extractor auth.UserExtractor
	IsHealthy func() bool
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(d.IsHealthy)
	syncHandler := NewSyncHandler(d.Sync, d.Extractor)
	adminHandler := NewAdminHandler(d.Hook, d.Tracker, d.Queue, d.Extractor)

	// Health
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// Sync push/pull
	router.HandleFunc("/api/sync/{scopeId}", syncHandler.Push).Methods("POST")
	router.HandleFunc("/api/sync/{scopeId}/nodes/since/{ts:-?[0-9]+}", syncHandler.PullNodes).Methods("GET")
	router.HandleFunc("/api/sync/{scopeId}/edges/since/{ts:-?[0-9]+}", syncHandler.PullEdges).Methods("GET")
	router.HandleFunc("/api/sync/{scopeId}/folders/since/{ts:-?[0-9]+}", syncHandler.PullFolders).Methods("GET")
	router.HandleFunc("/api/sync/{scopeId}/folders", syncHandler.FolderTree).Methods("GET")
	router.HandleFunc("/api/sync/{scopeId}/chats/since/{ts:-?[0-9]+}", syncHandler.PullChats).Methods("GET")
	router.HandleFunc("/api/sync/{scopeId}/chat-messages/since/{ts:-?[0-9]+}", syncHandler.PullChatMessages).Methods("GET")
	router.HandleFunc("/api/sync/{scopeId}/sidebar", syncHandler.Sidebar).Methods("GET")

	// Chat retention
	router.HandleFunc("/api/sync/{scopeId}/chats/cleanup", syncHandler.CleanupChats).Methods("POST")
	router.HandleFunc("/api/sync/{scopeId}/chats/cleanup/status", syncHandler.CleanupStatus).Methods("GET")

	// Embedding admin
	router.HandleFunc("/api/admin/embeddings/flush", adminHandler.Flush).Methods("POST")
	router.HandleFunc("/api/admin/embeddings/status/{scopeId}", adminHandler.Status).Methods("GET")
	router.HandleFunc("/api/admin/embeddings/campaign/{scopeId}", adminHandler.EmbedCampaign).Methods("POST")
	router.HandleFunc("/api/admin/embeddings/missing", adminHandler.EmbedMissing).Methods("POST")
	router.HandleFunc("/api/admin/tasks/{taskId}", adminHandler.GetTask).Methods("GET")

	return router
}
