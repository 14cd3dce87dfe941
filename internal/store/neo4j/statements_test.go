package neo4j

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/store"
)

type runCall struct {
	cypher string
	params map[string]interface{}
	write  bool
}

// fakeRunner records every statement and replays canned rows.
type fakeRunner struct {
	calls []runCall
	rows  []map[string]interface{}
	err   error
}

func (f *fakeRunner) Read(_ context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	f.calls = append(f.calls, runCall{cypher: cypher, params: params})
	return f.rows, f.err
}

func (f *fakeRunner) Write(_ context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	f.calls = append(f.calls, runCall{cypher: cypher, params: params, write: true})
	return f.rows, f.err
}

func (f *fakeRunner) last(t *testing.T) runCall {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("no statements executed")
	}
	return f.calls[len(f.calls)-1]
}

func wantContains(t *testing.T, cypher, fragment string) {
	t.Helper()
	if !strings.Contains(cypher, fragment) {
		t.Fatalf("statement missing %q:\n%s", fragment, cypher)
	}
}

var campaignScope = store.Scope{UserID: "u1", ScopeID: "camp-1"}
var globalScope = store.Scope{UserID: "u1", ScopeID: "global"}

func TestNodeUpsertAttachesBothOwnershipEdges(t *testing.T) {
	f := &fakeRunner{}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	err := ns.Upsert(context.Background(), campaignScope, "n1", "Character",
		map[string]interface{}{"title": "Strahd"}, 100)
	if err != nil {
		t.Fatal(err)
	}

	call := f.last(t)
	wantContains(t, call.cypher, "MERGE (n:Character {id: $id})")
	wantContains(t, call.cypher, "ON CREATE SET n.createdAt = $createdAt")
	wantContains(t, call.cypher, "MERGE (n)-[:PART_OF]->(c)")
	wantContains(t, call.cypher, "MERGE (u)-[:PART_OF]->(n)")

	props := call.params["props"].(map[string]interface{})
	if _, ok := props["id"]; ok {
		t.Fatal("id must not be written as a property")
	}
	if props["type"] != "Character" {
		t.Fatalf("raw type not kept as property: %v", props["type"])
	}
	if call.params["createdAt"] != int64(100) {
		t.Fatalf("createdAt should default to change ts, got %v", call.params["createdAt"])
	}
}

func TestNodeUpsertRejectsUnsafeLabel(t *testing.T) {
	f := &fakeRunner{}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	if err := ns.Upsert(context.Background(), campaignScope, "n1",
		"Character) DETACH DELETE (x", nil, 100); err != nil {
		t.Fatal(err)
	}
	wantContains(t, f.last(t).cypher, "MERGE (n:Node {id: $id})")
}

func TestNodeUpsertFirstWriteWinsCreatedAt(t *testing.T) {
	f := &fakeRunner{}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	err := ns.Upsert(context.Background(), campaignScope, "n1", "",
		map[string]interface{}{"createdAt": int64(50)}, 100)
	if err != nil {
		t.Fatal(err)
	}
	call := f.last(t)
	if call.params["createdAt"] != int64(50) {
		t.Fatalf("client createdAt not honored: %v", call.params["createdAt"])
	}
	props := call.params["props"].(map[string]interface{})
	if _, ok := props["createdAt"]; ok {
		t.Fatal("createdAt must not appear in SET props, only in ON CREATE")
	}
}

func TestNodeMergeScopesByOwnership(t *testing.T) {
	f := &fakeRunner{}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	if err := ns.Merge(context.Background(), campaignScope, "n1",
		map[string]interface{}{"title": "x"}, 200); err != nil {
		t.Fatal(err)
	}
	wantContains(t, f.last(t).cypher,
		"MATCH (u:User {id: $uid})-[:OWNS]->(:Campaign {id: $scope})<-[:PART_OF]-(n {id: $id})")
}

func TestNodeMergeGlobalUsesDirectPath(t *testing.T) {
	f := &fakeRunner{}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	if err := ns.Merge(context.Background(), globalScope, "n1", nil, 200); err != nil {
		t.Fatal(err)
	}
	call := f.last(t)
	wantContains(t, call.cypher, "MATCH (u:User {id: $uid})-[:PART_OF]->(n {id: $id})")
	if strings.Contains(call.cypher, "Campaign") {
		t.Fatal("global scope must not touch campaigns")
	}
}

func TestNodeDeleteDetaches(t *testing.T) {
	f := &fakeRunner{}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	if err := ns.Delete(context.Background(), campaignScope, "n1"); err != nil {
		t.Fatal(err)
	}
	wantContains(t, f.last(t).cypher, "DETACH DELETE n")
}

func TestNodePullExcludesDedicatedKinds(t *testing.T) {
	f := &fakeRunner{}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	if _, err := ns.PullSince(context.Background(), campaignScope, 0); err != nil {
		t.Fatal(err)
	}
	call := f.last(t)
	wantContains(t, call.cypher, "NOT n:Folder")
	wantContains(t, call.cypher, "NOT n:ChatSession")
	wantContains(t, call.cypher, "coalesce(n.updatedAt, 0) > $since")
}

func TestNodeProjectionDefaultsAndAttributes(t *testing.T) {
	f := &fakeRunner{rows: []map[string]interface{}{
		{"props": map[string]interface{}{
			"id":         "n1",
			"name":       "The Keep",
			"updatedAt":  int64(10),
			"attributes": `{"hp": 12}`,
			"faction":    "neutral",
			"embedding":  []interface{}{0.1, 0.2},
		}},
	}}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	nodes, err := ns.PullSince(context.Background(), globalScope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes", len(nodes))
	}
	n := nodes[0]
	if n.Type != "Note" {
		t.Fatalf("type default: %q", n.Type)
	}
	if n.Title != "The Keep" {
		t.Fatalf("title should fall back to name: %q", n.Title)
	}
	if n.Attributes["hp"] != float64(12) {
		t.Fatalf("serialized attributes not restored: %v", n.Attributes)
	}
	if n.Attributes["faction"] != "neutral" {
		t.Fatalf("loose property not overlaid: %v", n.Attributes)
	}
	if _, ok := n.Attributes["embedding"]; ok {
		t.Fatal("embedding vector must not reach clients")
	}
}

func TestNodeProjectionUntitled(t *testing.T) {
	f := &fakeRunner{rows: []map[string]interface{}{
		{"props": map[string]interface{}{"id": "n1"}},
	}}
	ns := &NodeStore{client: f, log: zerolog.Nop()}

	nodes, err := ns.PullSince(context.Background(), globalScope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if nodes[0].Title != "Untitled" {
		t.Fatalf("got %q", nodes[0].Title)
	}
}

func TestEdgeUpsertWhitelistsRelType(t *testing.T) {
	f := &fakeRunner{}
	es := &EdgeStore{client: f, log: zerolog.Nop()}

	err := es.Upsert(context.Background(), campaignScope, "e1", "KNOWS", "a", "b",
		map[string]interface{}{"relType": "KNOWS"}, 100)
	if err != nil {
		t.Fatal(err)
	}
	wantContains(t, f.last(t).cypher, "MERGE (a)-[r:KNOWS {id: $id}]->(b)")

	if err := es.Upsert(context.Background(), campaignScope, "e2",
		"KNOWS]->() DELETE", "a", "b", nil, 100); err != nil {
		t.Fatal(err)
	}
	wantContains(t, f.last(t).cypher, "MERGE (a)-[r:RELATES_TO {id: $id}]->(b)")
}

func TestEdgePullSkipsStructuralEdges(t *testing.T) {
	f := &fakeRunner{}
	es := &EdgeStore{client: f, log: zerolog.Nop()}

	if _, err := es.PullSince(context.Background(), campaignScope, 0); err != nil {
		t.Fatal(err)
	}
	call := f.last(t)
	wantContains(t, call.cypher, "NOT type(r) IN ['OWNS','PART_OF','HAS_MESSAGE']")
	wantContains(t, call.cypher, "WITH DISTINCT r")
}

func TestEdgePullAssignsSyntheticID(t *testing.T) {
	f := &fakeRunner{rows: []map[string]interface{}{
		{
			"props":   map[string]interface{}{"updatedAt": int64(5)},
			"relType": "KNOWS", "fromId": "a", "toId": "b",
		},
	}}
	es := &EdgeStore{client: f, log: zerolog.Nop()}

	edges, err := es.PullSince(context.Background(), globalScope, 0)
	if err != nil {
		t.Fatal(err)
	}
	if edges[0].ID == "" {
		t.Fatal("id-less edge must get a synthetic id")
	}
	// Synthetic means read-time only: nothing was written back.
	for _, c := range f.calls {
		if c.write {
			t.Fatal("pull must not write")
		}
	}
}

func TestChatMessageAppendOnly(t *testing.T) {
	f := &fakeRunner{}
	cs := &ChatStore{client: f, log: zerolog.Nop()}

	err := cs.AppendMessage(context.Background(), campaignScope, "m1", "chat-1",
		map[string]interface{}{"role": "human", "content": "hi"}, 100)
	if err != nil {
		t.Fatal(err)
	}
	call := f.last(t)
	wantContains(t, call.cypher, "ON CREATE SET m += $props")
	wantContains(t, call.cypher, "MERGE (p)-[:HAS_MESSAGE]->(m)")
	if strings.Contains(call.cypher, "m.updatedAt") {
		t.Fatal("messages never update after creation")
	}
	if call.params["chatId"] != "chat-1" {
		t.Fatalf("chatId param: %v", call.params["chatId"])
	}
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	f := &fakeRunner{}
	cs := &ChatStore{client: f, log: zerolog.Nop()}

	if err := cs.DeleteSession(context.Background(), globalScope, "chat-1"); err != nil {
		t.Fatal(err)
	}
	call := f.last(t)
	wantContains(t, call.cypher, "OPTIONAL MATCH (n)-[:HAS_MESSAGE]->(m:ChatMessage)")
	wantContains(t, call.cypher, "DETACH DELETE m, n")
}

func TestSanitizePropsSerializesMaps(t *testing.T) {
	props := sanitizeProps(map[string]interface{}{
		"id":         "n1",
		"title":      "x",
		"editorJson": map[string]interface{}{"blocks": []interface{}{}},
		"empty":      map[string]interface{}{},
	})
	if _, ok := props["id"]; ok {
		t.Fatal("id leaked into props")
	}
	if _, ok := props["empty"]; ok {
		t.Fatal("empty maps should be dropped")
	}
	if s, ok := props["editorJson"].(string); !ok || !strings.Contains(s, "blocks") {
		t.Fatalf("map sub-attribute not serialized: %v", props["editorJson"])
	}
}
