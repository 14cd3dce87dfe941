package neo4j

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/graph"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// NodeStore persists generic content nodes.
type NodeStore struct {
	client runner
	log    zerolog.Logger
}

// Upsert merges a node by id under the client-supplied label, with
// first-write-wins createdAt, and attaches the ownership edges.
func (s *NodeStore) Upsert(ctx context.Context, sc store.Scope, id, nodeType string, payload map[string]interface{}, ts int64) error {
	props := sanitizeProps(payload)
	if nodeType != "" {
		// Keep the raw client type as a property even when the label
		// falls back to the default.
		props["type"] = nodeType
	}

	cypher := fmt.Sprintf(`
MERGE (n:%s {id: $id})
ON CREATE SET n.createdAt = $createdAt
SET n += $props, n.updatedAt = $ts`, graph.SafeLabel(nodeType)) + attachOwnershipClause

	_, err := s.client.Write(ctx, cypher, map[string]interface{}{
		"uid":       sc.UserID,
		"scope":     campaignOrNil(sc),
		"id":        id,
		"props":     props,
		"ts":        ts,
		"createdAt": createdAtFor(payload, ts),
	})
	return err
}

// Merge applies a partial property update through the ownership path.
// A non-matching id binds nothing and the write is a silent no-op.
func (s *NodeStore) Merge(ctx context.Context, sc store.Scope, id string, payload map[string]interface{}, ts int64) error {
	cypher := matchByID(sc, "") + `
SET n += $props, n.updatedAt = $ts`

	params := scopeParams(sc)
	params["id"] = id
	params["props"] = sanitizeProps(payload)
	params["ts"] = ts
	_, err := s.client.Write(ctx, cypher, params)
	return err
}

// Delete detach-deletes the node, clearing every incident edge including
// both ownership paths.
func (s *NodeStore) Delete(ctx context.Context, sc store.Scope, id string) error {
	cypher := matchByID(sc, "") + `
DETACH DELETE n`

	params := scopeParams(sc)
	params["id"] = id
	_, err := s.client.Write(ctx, cypher, params)
	return err
}

// PullSince returns visible nodes with updatedAt > sinceTs, excluding the
// folder and chat kinds which have dedicated pulls.
func (s *NodeStore) PullSince(ctx context.Context, sc store.Scope, sinceTs int64) ([]model.NodeProjection, error) {
	cypher := matchAll(sc, "") + `
WHERE coalesce(n.updatedAt, 0) > $since
  AND NOT n:Folder AND NOT n:ChatSession AND NOT n:ChatMessage
RETURN properties(n) AS props
ORDER BY n.updatedAt ASC`

	params := scopeParams(sc)
	params["since"] = sinceTs
	rows, err := s.client.Read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	out := make([]model.NodeProjection, 0, len(rows))
	for _, row := range rows {
		props := graph.Map(row, "props")
		if props == nil {
			continue
		}
		out = append(out, projectNode(props))
	}
	return out, nil
}

// namedNodeFields are surfaced as projection fields and excluded from the
// attributes map; the embedding vector is never shipped to clients.
var namedNodeFields = map[string]bool{
	"id": true, "type": true, "title": true, "markdown": true,
	"editorJson": true, "updatedAt": true, "createdAt": true,
	"attributes": true, "embedding": true, "contentHash": true,
	"embeddedAt": true,
}

func projectNode(props map[string]interface{}) model.NodeProjection {
	p := model.NodeProjection{
		ID:         graph.String(props, "id"),
		Type:       graph.String(props, "type"),
		Title:      graph.String(props, "title"),
		Markdown:   graph.String(props, "markdown"),
		EditorJSON: graph.String(props, "editorJson"),
		UpdatedAt:  graph.Int64(props, "updatedAt"),
		CreatedAt:  graph.Int64(props, "createdAt"),
		Attributes: map[string]interface{}{},
	}
	if p.Type == "" {
		p.Type = "Note"
	}
	if p.Title == "" {
		p.Title = graph.String(props, "name")
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}

	// The attributes blob was serialized on write; restore it as the base
	// of the attributes map, then overlay any loose properties.
	if raw := graph.String(props, "attributes"); raw != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			p.Attributes = m
		}
	}
	for k, v := range props {
		if !namedNodeFields[k] {
			p.Attributes[k] = v
		}
	}
	return p
}
