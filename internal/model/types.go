package model

// ScopeGlobal is the sentinel scope id selecting nodes linked directly to
// the user instead of through a campaign.
const ScopeGlobal = "global"

// Change operations accepted by the sync protocol.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Change entities accepted by the sync protocol. The names mirror the
// client's local tables, which is why some are plural.
const (
	EntityNode         = "node"
	EntityEdge         = "edge"
	EntityFolders      = "folders"
	EntityChats        = "chats"
	EntityChatMessages = "chatMessages"
)

// Change is one client-originated mutation. Changes are ephemeral: they are
// applied to the graph and never persisted themselves.
type Change struct {
	Op       string                 `json:"op"`
	Entity   string                 `json:"entity"`
	EntityID string                 `json:"entityId"`
	Payload  map[string]interface{} `json:"payload"`
	Ts       int64                  `json:"ts"`
}

// NodeProjection is the generic content-node shape returned by pulls.
// Attributes carries every stored property not surfaced as a named field.
type NodeProjection struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Title      string                 `json:"title"`
	Markdown   string                 `json:"markdown"`
	EditorJSON string                 `json:"editorJson,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
	UpdatedAt  int64                  `json:"updatedAt"`
	CreatedAt  int64                  `json:"createdAt"`
}

// EdgeProjection is the edge shape returned by pulls. ID may be synthetic
// when the stored edge has no client-assigned id.
type EdgeProjection struct {
	ID         string                 `json:"id"`
	FromID     string                 `json:"fromId"`
	ToID       string                 `json:"toId"`
	FromTitle  string                 `json:"fromTitle"`
	ToTitle    string                 `json:"toTitle"`
	RelType    string                 `json:"relType"`
	Attributes map[string]interface{} `json:"attributes"`
	UpdatedAt  int64                  `json:"updatedAt"`
	CreatedAt  int64                  `json:"createdAt"`
}

// Folder is a content-node subtype carrying hierarchical placement.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	Position  int64  `json:"position"`
	UpdatedAt int64  `json:"updatedAt"`
	CreatedAt int64  `json:"createdAt"`

	// Populated only by the full-snapshot listing.
	NoteIDs        []string `json:"noteIds,omitempty"`
	ChildFolderIDs []string `json:"childFolderIds,omitempty"`
}

// ChatSession owns an append-only sequence of chat messages.
type ChatSession struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ContextNodeID string `json:"contextNodeId,omitempty"`
	MessageCount  int64  `json:"messageCount"`
	IsCompacted   bool   `json:"isCompacted"`
	UpdatedAt     int64  `json:"updatedAt"`
	CreatedAt     int64  `json:"createdAt"`
}

// ChatMessage is a single transcript entry. Messages never change after
// creation; compaction only flips IsCompacted.
type ChatMessage struct {
	ID          string `json:"id"`
	ChatID      string `json:"chatId"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	IsCompacted bool   `json:"isCompacted"`
	CreatedAt   int64  `json:"createdAt"`
}

// NodeContent is the slice of a node the staleness tracker reads: the
// embeddable text plus the stored embedding state.
type NodeContent struct {
	ID          string
	Title       string
	Markdown    string
	ContentHash string
	HasVector   bool
	UpdatedAt   int64
}

// EmbedResult reports the outcome of embedding a single node.
type EmbedResult struct {
	NodeID  string `json:"nodeId"`
	Message string `json:"message,omitempty"`
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// BatchEmbedResult aggregates per-node outcomes for a batch run.
type BatchEmbedResult struct {
	Message   string   `json:"message"`
	Processed int      `json:"processed"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// EmbeddingStatus summarizes embedding coverage for a scope.
type EmbeddingStatus struct {
	TotalNodes    int     `json:"totalNodes"`
	EmbeddedNodes int     `json:"embeddedNodes"`
	StaleNodes    int     `json:"staleNodes"`
	Coverage      float64 `json:"embeddingCoverage"`
}

// CleanupReport summarizes a chat retention sweep.
type CleanupReport struct {
	DeletedChats    int   `json:"deletedChats"`
	DeletedMessages int   `json:"deletedMessages"`
	CutoffTs        int64 `json:"cutoffTs"`
}

// CleanupStatus reports what a retention sweep would remove.
type CleanupStatus struct {
	TotalChats    int   `json:"totalChats"`
	ExpiredChats  int   `json:"expiredChats"`
	RetentionDays int   `json:"retentionDays"`
	CutoffTs      int64 `json:"cutoffTs"`
}
