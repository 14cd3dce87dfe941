package neo4j

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/graph"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// EmbeddingStore reads and writes derived embedding state. Content access is
// by bare node id; ownership was enforced before the node id ever reached
// the tracker.
type EmbeddingStore struct {
	client runner
	log    zerolog.Logger
}

// contentNodeFilter restricts statements to embeddable content nodes.
const contentNodeFilter = `n.title IS NOT NULL
  AND NOT n:Folder AND NOT n:ChatSession AND NOT n:ChatMessage`

// GetContent returns the embeddable slice of one node.
func (s *EmbeddingStore) GetContent(ctx context.Context, nodeID string) (*model.NodeContent, error) {
	cypher := `
MATCH (n {id: $id})
RETURN n.id AS id, n.title AS title, n.markdown AS markdown,
       n.contentHash AS contentHash,
       n.embedding IS NOT NULL AND size(coalesce(n.embedding, [])) > 0 AS hasVector,
       coalesce(n.updatedAt, 0) AS updatedAt`

	rows, err := s.client.Read(ctx, cypher, map[string]interface{}{"id": nodeID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, model.ErrNotFound
	}
	row := rows[0]
	return &model.NodeContent{
		ID:          graph.String(row, "id"),
		Title:       graph.String(row, "title"),
		Markdown:    graph.String(row, "markdown"),
		ContentHash: graph.String(row, "contentHash"),
		HasVector:   graph.Bool(row, "hasVector"),
		UpdatedAt:   graph.Int64(row, "updatedAt"),
	}, nil
}

// PutVector writes back the embedding, its content fingerprint, and the
// embedding timestamp in one statement.
func (s *EmbeddingStore) PutVector(ctx context.Context, nodeID string, vector []float64, contentHash string, embeddedAt int64) error {
	cypher := `
MATCH (n {id: $id})
SET n.embedding = $vector,
    n.contentHash = $hash,
    n.embeddedAt = $at`

	_, err := s.client.Write(ctx, cypher, map[string]interface{}{
		"id":     nodeID,
		"vector": vector,
		"hash":   contentHash,
		"at":     embeddedAt,
	})
	return err
}

// VisibleNodeIDs resolves the full set of embeddable nodes visible under the
// scope, newest first.
func (s *EmbeddingStore) VisibleNodeIDs(ctx context.Context, sc store.Scope) ([]string, error) {
	cypher := matchAll(sc, "") + `
WHERE ` + contentNodeFilter + `
RETURN n.id AS id
ORDER BY coalesce(n.updatedAt, n.createdAt) DESC`

	return s.collectIDs(ctx, cypher, scopeParams(sc))
}

// MissingNodeIDs returns up to limit visible nodes that have no embedding,
// newest first. limit <= 0 means no cap.
func (s *EmbeddingStore) MissingNodeIDs(ctx context.Context, sc store.Scope, limit int) ([]string, error) {
	cypher := matchAll(sc, "") + `
WHERE ` + contentNodeFilter + `
  AND (n.embedding IS NULL OR size(n.embedding) = 0)
RETURN n.id AS id
ORDER BY coalesce(n.updatedAt, n.createdAt) DESC`

	params := scopeParams(sc)
	if limit > 0 {
		cypher += `
LIMIT $limit`
		params["limit"] = limit
	}
	return s.collectIDs(ctx, cypher, params)
}

// Status summarizes embedding coverage and staleness for the scope.
func (s *EmbeddingStore) Status(ctx context.Context, sc store.Scope) (*model.EmbeddingStatus, error) {
	cypher := matchAll(sc, "") + `
WHERE ` + contentNodeFilter + `
RETURN count(n) AS total,
       count(n.embedding) AS embedded,
       count(CASE WHEN coalesce(n.updatedAt, 0) > coalesce(n.embeddedAt, 0) THEN 1 END) AS stale`

	rows, err := s.client.Read(ctx, cypher, scopeParams(sc))
	if err != nil {
		return nil, err
	}

	st := &model.EmbeddingStatus{}
	if len(rows) > 0 {
		st.TotalNodes = int(graph.Int64(rows[0], "total"))
		st.EmbeddedNodes = int(graph.Int64(rows[0], "embedded"))
		st.StaleNodes = int(graph.Int64(rows[0], "stale"))
	}
	if st.TotalNodes > 0 {
		st.Coverage = float64(st.EmbeddedNodes) / float64(st.TotalNodes)
	}
	return st, nil
}

func (s *EmbeddingStore) collectIDs(ctx context.Context, cypher string, params map[string]interface{}) ([]string, error) {
	rows, err := s.client.Read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := graph.String(row, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
