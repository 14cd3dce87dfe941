package queue

import (
	"encoding/json"
	"time"
)

// EmbedBatchPayload re-embeds an explicit set of nodes.
type EmbedBatchPayload struct {
	NodeIDs []string `json:"nodeIds"`
	Force   bool     `json:"force"`
}

// EmbedCampaignPayload re-embeds every node visible in a scope.
type EmbedCampaignPayload struct {
	UserID  string `json:"userId"`
	ScopeID string `json:"scopeId"`
	Force   bool   `json:"force"`
}

// EmbedMissingPayload embeds nodes with no vector, up to Limit.
type EmbedMissingPayload struct {
	UserID  string `json:"userId"`
	ScopeID string `json:"scopeId"`
	Limit   int    `json:"limit"`
}

// ChatCleanupPayload sweeps chat sessions idle past the cutoff.
type ChatCleanupPayload struct {
	UserID   string `json:"userId"`
	ScopeID  string `json:"scopeId"`
	CutoffTs int64  `json:"cutoffTs"`
}

// NewEmbedBatchTask builds the task the invalidation hook enqueues.
func NewEmbedBatchTask(nodeIDs []string, force bool) (Task, error) {
	b, err := json.Marshal(EmbedBatchPayload{NodeIDs: nodeIDs, Force: force})
	if err != nil {
		return Task{}, err
	}
	return Task{Kind: TypeEmbedBatch, Payload: b}, nil
}

// NewEmbedCampaignTask builds a full-scope re-embed task.
func NewEmbedCampaignTask(userID, scopeID string, force bool) (Task, error) {
	b, err := json.Marshal(EmbedCampaignPayload{UserID: userID, ScopeID: scopeID, Force: force})
	if err != nil {
		return Task{}, err
	}
	return Task{Kind: TypeEmbedCampaign, Payload: b}, nil
}

// NewEmbedMissingTask builds a backfill task for nodes with no vector.
func NewEmbedMissingTask(userID, scopeID string, limit int) (Task, error) {
	b, err := json.Marshal(EmbedMissingPayload{UserID: userID, ScopeID: scopeID, Limit: limit})
	if err != nil {
		return Task{}, err
	}
	return Task{Kind: TypeEmbedMissing, Payload: b}, nil
}

// NewChatCleanupTask builds a retention sweep task.
func NewChatCleanupTask(userID, scopeID string, cutoff time.Time) (Task, error) {
	b, err := json.Marshal(ChatCleanupPayload{UserID: userID, ScopeID: scopeID, CutoffTs: cutoff.UnixMilli()})
	if err != nil {
		return Task{}, err
	}
	return Task{Kind: TypeChatCleanup, Payload: b}, nil
}
