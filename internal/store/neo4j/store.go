// Package neo4j implements the store interfaces on top of the graph client.
// All writes are MERGE-by-id so they stay idempotent under concurrent
// writers; ownership scoping is embedded in every statement's match path.
package neo4j

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/graph"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// runner is the slice of the graph client the stores execute through.
type runner interface {
	Read(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error)
	Write(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error)
}

// Store bundles the entity-family surfaces over one graph client.
type Store struct {
	client     *graph.Client
	nodes      *NodeStore
	edges      *EdgeStore
	folders    *FolderStore
	chats      *ChatStore
	embeddings *EmbeddingStore
}

// New constructs a Store from a connected graph client.
func New(client *graph.Client, log zerolog.Logger) *Store {
	return &Store{
		client:     client,
		nodes:      &NodeStore{client: client, log: log},
		edges:      &EdgeStore{client: client, log: log},
		folders:    &FolderStore{client: client, log: log},
		chats:      &ChatStore{client: client, log: log},
		embeddings: &EmbeddingStore{client: client, log: log},
	}
}

func (s *Store) Nodes() store.Nodes { return s.nodes }
func (s *Store) Edges() store.Edges { return s.edges }
func (s *Store) Folders() store.Folders { return s.folders }
func (s *Store) Chats() store.Chats { return s.chats }
func (s *Store) Embeddings() store.Embeddings { return s.embeddings }

// HealthPing implements health.HealthPinger by probing the driver.
func (s *Store) HealthPing(ctx context.Context) error { return s.client.HealthPing(ctx) }

var _ store.Store = (*Store)(nil)
