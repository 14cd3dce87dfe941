package neo4j

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/graph"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// EdgeStore persists directed typed relationships between content nodes.
type EdgeStore struct {
	client runner
	log    zerolog.Logger
}

// structural relationship types never surfaced as content edges.
const structuralRelTypes = "['OWNS','PART_OF','HAS_MESSAGE']"

// Upsert merges a directed edge by id between two already-existing nodes.
// Re-creating with the same id updates instead of duplicating.
func (s *EdgeStore) Upsert(ctx context.Context, sc store.Scope, id, relType, fromID, toID string, payload map[string]interface{}, ts int64) error {
	cypher := fmt.Sprintf(`
MATCH (a {id: $from}), (b {id: $to})
MERGE (a)-[r:%s {id: $id}]->(b)
ON CREATE SET r.createdAt = $createdAt
SET r += $props, r.updatedAt = $ts`, graph.SafeRelType(relType))

	_, err := s.client.Write(ctx, cypher, map[string]interface{}{
		"from":      fromID,
		"to":        toID,
		"id":        id,
		"props":     sanitizeProps(payload),
		"ts":        ts,
		"createdAt": createdAtFor(payload, ts),
	})
	return err
}

// Merge applies a partial property update to the edge matched by id.
func (s *EdgeStore) Merge(ctx context.Context, sc store.Scope, id string, payload map[string]interface{}, ts int64) error {
	cypher := `
MATCH ()-[r {id: $id}]->()
SET r += $props, r.updatedAt = $ts`

	_, err := s.client.Write(ctx, cypher, map[string]interface{}{
		"id":    id,
		"props": sanitizeProps(payload),
		"ts":    ts,
	})
	return err
}

// Delete removes the edge matched by id.
func (s *EdgeStore) Delete(ctx context.Context, sc store.Scope, id string) error {
	cypher := `
MATCH ()-[r {id: $id}]->()
DELETE r`

	_, err := s.client.Write(ctx, cypher, map[string]interface{}{"id": id})
	return err
}

// PullSince returns edges with updatedAt > sinceTs whose both endpoints are
// reachable from the user (union of campaign-owned and directly linked
// nodes), deduplicated. Edges without a client id get a fresh synthetic one
// at read time; it is never persisted.
func (s *EdgeStore) PullSince(ctx context.Context, sc store.Scope, sinceTs int64) ([]model.EdgeProjection, error) {
	cypher := `
MATCH (u:User {id: $uid})
OPTIONAL MATCH (u)-[:OWNS]->(:Campaign {id: $scope})<-[:PART_OF]-(n1)
OPTIONAL MATCH (u)-[:PART_OF]->(n2)
WITH collect(DISTINCT n1) + collect(DISTINCT n2) AS visible
UNWIND visible AS a
MATCH (a)-[r]->(b)
WHERE b IN visible
  AND coalesce(r.updatedAt, 0) > $since
  AND NOT type(r) IN ` + structuralRelTypes + `
WITH DISTINCT r, startNode(r) AS a, endNode(r) AS b
RETURN properties(r) AS props, type(r) AS relType,
       a.id AS fromId, a.title AS fromTitle,
       b.id AS toId, b.title AS toTitle`

	rows, err := s.client.Read(ctx, cypher, map[string]interface{}{
		"uid":   sc.UserID,
		"scope": campaignOrNil(sc),
		"since": sinceTs,
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.EdgeProjection, 0, len(rows))
	for _, row := range rows {
		props := graph.Map(row, "props")
		e := model.EdgeProjection{
			ID:         graph.String(props, "id"),
			RelType:    graph.String(row, "relType"),
			FromID:     graph.String(row, "fromId"),
			FromTitle:  graph.String(row, "fromTitle"),
			ToID:       graph.String(row, "toId"),
			ToTitle:    graph.String(row, "toTitle"),
			UpdatedAt:  graph.Int64(props, "updatedAt"),
			CreatedAt:  graph.Int64(props, "createdAt"),
			Attributes: map[string]interface{}{},
		}
		if e.ID == "" {
			// Stable handle for the client; read-time only.
			e.ID = uuid.NewString()
		}
		for k, v := range props {
			switch k {
			case "id", "updatedAt", "createdAt":
			default:
				e.Attributes[k] = v
			}
		}
		out = append(out, e)
	}
	return out, nil
}
