package neo4j

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/graph"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// ChatStore persists chat sessions and their append-only messages.
type ChatStore struct {
	client runner
	log    zerolog.Logger
}

// UpsertSession merges a chat session by id and attaches ownership edges.
func (s *ChatStore) UpsertSession(ctx context.Context, sc store.Scope, id string, payload map[string]interface{}, ts int64) error {
	cypher := `
MERGE (n:ChatSession {id: $id})
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

// DeleteSession removes a session and all of its messages.
func (s *ChatStore) DeleteSession(ctx context.Context, sc store.Scope, id string) error {
	cypher := matchByID(sc, "ChatSession") + `
OPTIONAL MATCH (n)-[:HAS_MESSAGE]->(m:ChatMessage)
DETACH DELETE m, n`

	params := scopeParams(sc)
	params["id"] = id
	_, err := s.client.Write(ctx, cypher, params)
	return err
}

// AppendMessage creates a message under its parent session, resolved through
// the ownership path. Messages are append-only: re-sending an id leaves the
// stored message untouched.
func (s *ChatStore) AppendMessage(ctx context.Context, sc store.Scope, id, chatID string, payload map[string]interface{}, ts int64) error {
	var match string
	if sc.IsGlobal() {
		match = `MATCH (u:User {id: $uid})-[:PART_OF]->(p:ChatSession {id: $chatId})`
	} else {
		match = `MATCH (u:User {id: $uid})-[:OWNS]->(:Campaign {id: $scope})<-[:PART_OF]-(p:ChatSession {id: $chatId})`
	}
	cypher := match + `
MERGE (m:ChatMessage {id: $id})
ON CREATE SET m += $props, m.createdAt = $ts, m.chatId = $chatId
MERGE (p)-[:HAS_MESSAGE]->(m)`

	params := scopeParams(sc)
	params["chatId"] = chatID
	params["id"] = id
	params["props"] = sanitizeProps(payload)
	params["ts"] = ts
	_, err := s.client.Write(ctx, cypher, params)
	return err
}

// DeleteMessage removes one message, resolved through its parent session.
func (s *ChatStore) DeleteMessage(ctx context.Context, sc store.Scope, id string) error {
	cypher := matchAll(sc, "ChatSession") + `
MATCH (n)-[:HAS_MESSAGE]->(m:ChatMessage {id: $id})
DETACH DELETE m`

	params := scopeParams(sc)
	params["id"] = id
	_, err := s.client.Write(ctx, cypher, params)
	return err
}

// SessionsSince returns visible sessions with updatedAt > sinceTs, each with
// its current message count.
func (s *ChatStore) SessionsSince(ctx context.Context, sc store.Scope, sinceTs int64) ([]model.ChatSession, error) {
	cypher := matchAll(sc, "ChatSession") + `
WHERE coalesce(n.updatedAt, 0) > $since
RETURN properties(n) AS props,
       size([(n)-[:HAS_MESSAGE]->(m) | m]) AS messageCount
ORDER BY n.updatedAt DESC`

	params := scopeParams(sc)
	params["since"] = sinceTs
	rows, err := s.client.Read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	out := make([]model.ChatSession, 0, len(rows))
	for _, row := range rows {
		props := graph.Map(row, "props")
		out = append(out, model.ChatSession{
			ID:            graph.String(props, "id"),
			Title:         graph.String(props, "title"),
			ContextNodeID: graph.String(props, "contextNodeId"),
			MessageCount:  graph.Int64(row, "messageCount"),
			IsCompacted:   graph.Bool(props, "isCompacted"),
			UpdatedAt:     graph.Int64(props, "updatedAt"),
			CreatedAt:     graph.Int64(props, "createdAt"),
		})
	}
	return out, nil
}

// MessagesSince returns messages of visible sessions created after sinceTs.
// Messages cursor on createdAt because they never change after creation.
func (s *ChatStore) MessagesSince(ctx context.Context, sc store.Scope, sinceTs int64) ([]model.ChatMessage, error) {
	cypher := matchAll(sc, "ChatSession") + `
MATCH (n)-[:HAS_MESSAGE]->(m:ChatMessage)
WHERE coalesce(m.createdAt, 0) > $since
RETURN properties(m) AS props
ORDER BY m.createdAt ASC`

	params := scopeParams(sc)
	params["since"] = sinceTs
	rows, err := s.client.Read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	out := make([]model.ChatMessage, 0, len(rows))
	for _, row := range rows {
		props := graph.Map(row, "props")
		out = append(out, model.ChatMessage{
			ID:          graph.String(props, "id"),
			ChatID:      graph.String(props, "chatId"),
			Role:        graph.String(props, "role"),
			Content:     graph.String(props, "content"),
			IsCompacted: graph.Bool(props, "isCompacted"),
			CreatedAt:   graph.Int64(props, "createdAt"),
		})
	}
	return out, nil
}

// Cleanup deletes the caller's sessions not updated since cutoffTs, together
// with their messages. Messages go first so a failure between the two
// statements never strands them.
func (s *ChatStore) Cleanup(ctx context.Context, sc store.Scope, cutoffTs int64) (*model.CleanupReport, error) {
	status, err := s.CleanupStatus(ctx, sc, cutoffTs)
	if err != nil {
		return nil, err
	}
	report := &model.CleanupReport{CutoffTs: cutoffTs}
	if status.ExpiredChats == 0 {
		return report, nil
	}

	countCypher := matchAll(sc, "ChatSession") + `
WHERE coalesce(n.updatedAt, 0) < $cutoff
MATCH (n)-[:HAS_MESSAGE]->(m:ChatMessage)
RETURN count(m) AS messages`
	params := scopeParams(sc)
	params["cutoff"] = cutoffTs
	rows, err := s.client.Read(ctx, countCypher, params)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		report.DeletedMessages = int(graph.Int64(rows[0], "messages"))
	}

	deleteMessages := matchAll(sc, "ChatSession") + `
WHERE coalesce(n.updatedAt, 0) < $cutoff
MATCH (n)-[:HAS_MESSAGE]->(m:ChatMessage)
DETACH DELETE m`
	if _, err := s.client.Write(ctx, deleteMessages, params); err != nil {
		return nil, err
	}

	deleteSessions := matchAll(sc, "ChatSession") + `
WHERE coalesce(n.updatedAt, 0) < $cutoff
DETACH DELETE n`
	if _, err := s.client.Write(ctx, deleteSessions, params); err != nil {
		return nil, err
	}

	report.DeletedChats = status.ExpiredChats
	return report, nil
}

// CleanupStatus reports what a retention sweep at cutoffTs would remove.
func (s *ChatStore) CleanupStatus(ctx context.Context, sc store.Scope, cutoffTs int64) (*model.CleanupStatus, error) {
	cypher := matchAll(sc, "ChatSession") + `
RETURN count(n) AS total,
       count(CASE WHEN coalesce(n.updatedAt, 0) < $cutoff THEN 1 END) AS expired`

	params := scopeParams(sc)
	params["cutoff"] = cutoffTs
	rows, err := s.client.Read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	st := &model.CleanupStatus{CutoffTs: cutoffTs}
	if len(rows) > 0 {
		st.TotalChats = int(graph.Int64(rows[0], "total"))
		st.ExpiredChats = int(graph.Int64(rows[0], "expired"))
	}
	return st, nil
}
