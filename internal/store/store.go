// Package store exposes ownership-scoped persistence operations required by
// the sync protocol and the embedding tracker. The only implementation lives
// under internal/store/neo4j.
package store

import (
	"context"

	"github.com/lorekeeper/lorekeeper/internal/model"
)

// Scope identifies the acting user and the campaign (or global) scope every
// read and write resolves against.
type Scope struct {
	UserID  string
	ScopeID string
}

// IsGlobal reports whether the scope selects the direct user link instead of
// a campaign path.
func (s Scope) IsGlobal() bool { return s.ScopeID == model.ScopeGlobal || s.ScopeID == "" }

// Store groups the persistence surfaces by entity family.
type Store interface {
	Nodes() Nodes
	Edges() Edges
	Folders() Folders
	Chats() Chats
	Embeddings() Embeddings
}

// Nodes covers generic content nodes. Upsert attaches ownership edges;
// Merge and Delete authorize through the ownership path and are silent
// no-ops when the path does not match.
type Nodes interface {
	Upsert(ctx context.Context, scope Scope, id, nodeType string, props map[string]interface{}, ts int64) error
	Merge(ctx context.Context, scope Scope, id string, props map[string]interface{}, ts int64) error
	Delete(ctx context.Context, scope Scope, id string) error
	PullSince(ctx context.Context, scope Scope, sinceTs int64) ([]model.NodeProjection, error)
}

// Edges covers directed typed relationships between content nodes.
type Edges interface {
	Upsert(ctx context.Context, scope Scope, id, relType, fromID, toID string, props map[string]interface{}, ts int64) error
	Merge(ctx context.Context, scope Scope, id string, props map[string]interface{}, ts int64) error
	Delete(ctx context.Context, scope Scope, id string) error
	PullSince(ctx context.Context, scope Scope, sinceTs int64) ([]model.EdgeProjection, error)
}

// Folders covers hierarchy nodes. They share node ownership semantics but
// have their own projection and a full-snapshot listing.
type Folders interface {
	Upsert(ctx context.Context, scope Scope, id string, props map[string]interface{}, ts int64) error
	Delete(ctx context.Context, scope Scope, id string) error
	PullSince(ctx context.Context, scope Scope, sinceTs int64) ([]model.Folder, error)
	ListTree(ctx context.Context, scope Scope) ([]model.Folder, error)
}

// Chats covers chat sessions, their append-only messages, and the retention
// sweep.
type Chats interface {
	UpsertSession(ctx context.Context, scope Scope, id string, props map[string]interface{}, ts int64) error
	DeleteSession(ctx context.Context, scope Scope, id string) error
	AppendMessage(ctx context.Context, scope Scope, id, chatID string, props map[string]interface{}, ts int64) error
	DeleteMessage(ctx context.Context, scope Scope, id string) error
	SessionsSince(ctx context.Context, scope Scope, sinceTs int64) ([]model.ChatSession, error)
	MessagesSince(ctx context.Context, scope Scope, sinceTs int64) ([]model.ChatMessage, error)
	Cleanup(ctx context.Context, scope Scope, cutoffTs int64) (*model.CleanupReport, error)
	CleanupStatus(ctx context.Context, scope Scope, cutoffTs int64) (*model.CleanupStatus, error)
}

// Embeddings covers the derived embedding state the staleness tracker reads
// and writes. Content access is by bare node id: the tracker runs behind the
// sync boundary, after ownership was already enforced.
type Embeddings interface {
	GetContent(ctx context.Context, nodeID string) (*model.NodeContent, error)
	PutVector(ctx context.Context, nodeID string, vector []float64, contentHash string, embeddedAt int64) error
	VisibleNodeIDs(ctx context.Context, scope Scope) ([]string, error)
	MissingNodeIDs(ctx context.Context, scope Scope, limit int) ([]string, error)
	Status(ctx context.Context, scope Scope) (*model.EmbeddingStatus, error)
}
