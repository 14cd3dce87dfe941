package neo4j

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/graph"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// FolderStore persists hierarchy folders. Folders share node ownership
// semantics but are excluded from generic node pulls by label.
type FolderStore struct {
	client runner
	log    zerolog.Logger
}

// Upsert merges a folder by id and attaches the ownership edges.
func (s *FolderStore) Upsert(ctx context.Context, sc store.Scope, id string, payload map[string]interface{}, ts int64) error {
	cypher := `
MERGE (n:Folder {id: $id})
ON CREATE SET n.createdAt = $createdAt
SET n += $props, n.updatedAt = $ts` + attachOwnershipClause

	_, err := s.client.Write(ctx, cypher, map[string]interface{}{
		"uid":       sc.UserID,
		"scope":     campaignOrNil(sc),
		"id":        id,
		"props":     sanitizeProps(payload),
		"ts":        ts,
		"createdAt": createdAtFor(payload, ts),
	})
	return err
}

// Delete detach-deletes the folder through the ownership path.
func (s *FolderStore) Delete(ctx context.Context, sc store.Scope, id string) error {
	cypher := matchByID(sc, "Folder") + `
DETACH DELETE n`

	params := scopeParams(sc)
	params["id"] = id
	_, err := s.client.Write(ctx, cypher, params)
	return err
}

// PullSince returns folders with updatedAt > sinceTs.
func (s *FolderStore) PullSince(ctx context.Context, sc store.Scope, sinceTs int64) ([]model.Folder, error) {
	cypher := matchAll(sc, "Folder") + `
WHERE coalesce(n.updatedAt, 0) > $since
RETURN properties(n) AS props
ORDER BY n.position ASC`

	params := scopeParams(sc)
	params["since"] = sinceTs
	rows, err := s.client.Read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	out := make([]model.Folder, 0, len(rows))
	for _, row := range rows {
		out = append(out, projectFolder(graph.Map(row, "props")))
	}
	return out, nil
}

// ListTree returns the full folder snapshot, each entry carrying its note id
// summary and the ids of its child folders.
func (s *FolderStore) ListTree(ctx context.Context, sc store.Scope) ([]model.Folder, error) {
	folders, err := s.PullSince(ctx, sc, -1)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]string)
	for _, f := range folders {
		if f.ParentID != "" {
			children[f.ParentID] = append(children[f.ParentID], f.ID)
		}
	}
	for i := range folders {
		folders[i].ChildFolderIDs = children[folders[i].ID]
	}
	return folders, nil
}

func projectFolder(props map[string]interface{}) model.Folder {
	f := model.Folder{
		ID:        graph.String(props, "id"),
		Name:      graph.String(props, "name"),
		ParentID:  graph.String(props, "parentId"),
		Position:  graph.Int64(props, "position"),
		UpdatedAt: graph.Int64(props, "updatedAt"),
		CreatedAt: graph.Int64(props, "createdAt"),
	}
	if raw, ok := props["noteIds"].([]interface{}); ok {
		for _, v := range raw {
			if id, ok := v.(string); ok {
				f.NoteIDs = append(f.NoteIDs, id)
			}
		}
	}
	return f
}
