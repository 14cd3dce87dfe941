package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeeper/lorekeeper/internal/auth"
	"github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/queue"
	"github.com/lorekeeper/lorekeeper/internal/store"
	syncsvc "github.com/lorekeeper/lorekeeper/internal/sync"
)

// memStore is a minimal in-memory store.Store for handler tests. Only the
// surfaces the routes exercise are filled in.
type memStore struct {
	nodes map[string]model.NodeProjection
}

func newMemStore() *memStore { return &memStore{nodes: map[string]model.NodeProjection{}} }

func (m *memStore) Nodes() store.Nodes { return &memNodes{m} }
func (m *memStore) Edges() store.Edges { return &memEdges{} }
func (m *memStore) Folders() store.Folders { return &memFolders{} }
func (m *memStore) Chats() store.Chats { return &memChats{} }
func (m *memStore) Embeddings() store.Embeddings { return &memEmbeddings{} }

type memNodes struct{ m *memStore }

func (n *memNodes) Upsert(_ context.Context, _ store.Scope, id, nodeType string, props map[string]interface{}, ts int64) error {
	title, _ := props["title"].(string)
	n.m.nodes[id] = model.NodeProjection{ID: id, Type: nodeType, Title: title, UpdatedAt: ts}
	return nil
}
func (n *memNodes) Merge(context.Context, store.Scope, string, map[string]interface{}, int64) error {
	return nil
}
func (n *memNodes) Delete(_ context.Context, _ store.Scope, id string) error {
	delete(n.m.nodes, id)
	return nil
}
func (n *memNodes) PullSince(_ context.Context, _ store.Scope, sinceTs int64) ([]model.NodeProjection, error) {
	out := []model.NodeProjection{}
	for _, p := range n.m.nodes {
		if p.UpdatedAt > sinceTs {
			out = append(out, p)
		}
	}
	return out, nil
}

type memEdges struct{}

func (memEdges) Upsert(context.Context, store.Scope, string, string, string, string, map[string]interface{}, int64) error {
	return nil
}
func (memEdges) Merge(context.Context, store.Scope, string, map[string]interface{}, int64) error {
	return nil
}
func (memEdges) Delete(context.Context, store.Scope, string) error { return nil }
func (memEdges) PullSince(context.Context, store.Scope, int64) ([]model.EdgeProjection, error) {
	return []model.EdgeProjection{}, nil
}

type memFolders struct{}

func (memFolders) Upsert(context.Context, store.Scope, string, map[string]interface{}, int64) error {
	return nil
}
func (memFolders) Delete(context.Context, store.Scope, string) error { return nil }
func (memFolders) PullSince(context.Context, store.Scope, int64) ([]model.Folder, error) {
	return []model.Folder{}, nil
}
func (memFolders) ListTree(context.Context, store.Scope) ([]model.Folder, error) {
	return []model.Folder{}, nil
}

type memChats struct{}

func (memChats) UpsertSession(context.Context, store.Scope, string, map[string]interface{}, int64) error {
	return nil
}
func (memChats) DeleteSession(context.Context, store.Scope, string) error { return nil }
func (memChats) AppendMessage(context.Context, store.Scope, string, string, map[string]interface{}, int64) error {
	return nil
}
func (memChats) DeleteMessage(context.Context, store.Scope, string) error { return nil }
func (memChats) SessionsSince(context.Context, store.Scope, int64) ([]model.ChatSession, error) {
	return []model.ChatSession{}, nil
}
func (memChats) MessagesSince(context.Context, store.Scope, int64) ([]model.ChatMessage, error) {
	return []model.ChatMessage{}, nil
}
func (memChats) Cleanup(_ context.Context, _ store.Scope, cutoffTs int64) (*model.CleanupReport, error) {
	return &model.CleanupReport{CutoffTs: cutoffTs}, nil
}
func (memChats) CleanupStatus(_ context.Context, _ store.Scope, cutoffTs int64) (*model.CleanupStatus, error) {
	return &model.CleanupStatus{CutoffTs: cutoffTs}, nil
}

type memEmbeddings struct{}

func (memEmbeddings) GetContent(context.Context, string) (*model.NodeContent, error) {
	return nil, model.ErrNotFound
}
func (memEmbeddings) PutVector(context.Context, string, []float64, string, int64) error { return nil }
func (memEmbeddings) VisibleNodeIDs(context.Context, store.Scope) ([]string, error) {
	return nil, nil
}
func (memEmbeddings) MissingNodeIDs(context.Context, store.Scope, int) ([]string, error) {
	return nil, nil
}
func (memEmbeddings) Status(context.Context, store.Scope) (*model.EmbeddingStatus, error) {
	return &model.EmbeddingStatus{TotalNodes: 3, EmbeddedNodes: 2, Coverage: 0.67}, nil
}

type stubQueue struct{ handles int }

func (q *stubQueue) Enqueue(_ context.Context, queueName string, _ queue.Task, _ time.Duration) (*queue.TaskHandle, error) {
	q.handles++
	return &queue.TaskHandle{ID: fmt.Sprintf("task-%d", q.handles), Queue: queueName}, nil
}
func (q *stubQueue) Fetch(context.Context, string) (*queue.TaskStatus, error) {
	return nil, queue.ErrTaskNotFound
}

type stubProvider struct{}

func (stubProvider) Embed(context.Context, string) ([]float64, error) {
	return []float64{0.1}, nil
}

func newTestRouter(st store.Store) http.Handler {
	log := zerolog.Nop()
	q := &stubQueue{}
	tracker := embeddings.NewTracker(st, stubProvider{}, log)
	hook := syncsvc.NewHook(100, true, q, tracker, log)
	svc := syncsvc.NewService(st, hook, 30, log)
	return NewRouter(Deps{
		Sync:      svc,
		Hook:      hook,
		Tracker:   tracker,
		Queue:     q,
		Extractor: auth.NewHeaderExtractor(),
		IsHealthy: func() bool { return true },
	})
}

func doReq(t *testing.T, h http.Handler, method, path string, body interface{}, user string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(auth.UserHeader, user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPushEndpoint(t *testing.T) {
	st := newMemStore()
	router := newTestRouter(st)

	changes := []model.Change{
		{Op: model.OpCreate, Entity: model.EntityNode, EntityID: "n1",
			Payload: map[string]interface{}{"title": "Barovia"}, Ts: 10},
	}
	rr := doReq(t, router, http.MethodPost, "/api/sync/camp-1", changes, "u1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Contains(t, st.nodes, "n1")
}

func TestPushRequiresIdentity(t *testing.T) {
	rr := doReq(t, newTestRouter(newMemStore()), http.MethodPost, "/api/sync/camp-1",
		[]model.Change{}, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPushRejectsInvalidJSON(t *testing.T) {
	router := newTestRouter(newMemStore())
	req := httptest.NewRequest(http.MethodPost, "/api/sync/camp-1", bytes.NewBufferString("{not json"))
	req.Header.Set(auth.UserHeader, "u1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPullNodesEndpoint(t *testing.T) {
	st := newMemStore()
	st.nodes["n1"] = model.NodeProjection{ID: "n1", Title: "Barovia", UpdatedAt: 10}
	st.nodes["n2"] = model.NodeProjection{ID: "n2", Title: "Vallaki", UpdatedAt: 20}
	router := newTestRouter(st)

	rr := doReq(t, router, http.MethodGet, "/api/sync/camp-1/nodes/since/10", nil, "u1")
	require.Equal(t, http.StatusOK, rr.Code)

	var nodes []model.NodeProjection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "n2", nodes[0].ID)
}

func TestPullRejectsNonNumericTimestamp(t *testing.T) {
	rr := doReq(t, newTestRouter(newMemStore()), http.MethodGet,
		"/api/sync/camp-1/nodes/since/yesterday", nil, "u1")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSidebarEndpoint(t *testing.T) {
	st := newMemStore()
	st.nodes["n1"] = model.NodeProjection{ID: "n1", UpdatedAt: 0}
	router := newTestRouter(st)

	rr := doReq(t, router, http.MethodGet, "/api/sync/camp-1/sidebar", nil, "u1")
	require.Equal(t, http.StatusOK, rr.Code)

	var nodes []model.NodeProjection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &nodes))
	require.Len(t, nodes, 1)
}

func TestCleanupEndpoints(t *testing.T) {
	router := newTestRouter(newMemStore())

	rr := doReq(t, router, http.MethodPost, "/api/sync/camp-1/chats/cleanup", nil, "u1")
	require.Equal(t, http.StatusOK, rr.Code)
	var report model.CleanupReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Greater(t, report.CutoffTs, int64(0))

	rr = doReq(t, router, http.MethodGet, "/api/sync/camp-1/chats/cleanup/status", nil, "u1")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminStatusEndpoint(t *testing.T) {
	router := newTestRouter(newMemStore())

	rr := doReq(t, router, http.MethodGet, "/api/admin/embeddings/status/camp-1", nil, "u1")
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Embeddings model.EmbeddingStatus `json:"embeddings"`
		Hook       syncsvc.HookState     `json:"hook"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 3, out.Embeddings.TotalNodes)
	assert.Equal(t, 100, out.Hook.Threshold)
}

func TestAdminCampaignEnqueues(t *testing.T) {
	router := newTestRouter(newMemStore())

	rr := doReq(t, router, http.MethodPost, "/api/admin/embeddings/campaign/camp-1?force=true", nil, "u1")
	require.Equal(t, http.StatusAccepted, rr.Code)

	var handle queue.TaskHandle
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &handle))
	assert.NotEmpty(t, handle.ID)
	assert.Equal(t, queue.QueueLongRunning, handle.Queue)
}

func TestAdminMissingRequiresScope(t *testing.T) {
	router := newTestRouter(newMemStore())

	rr := doReq(t, router, http.MethodPost, "/api/admin/embeddings/missing",
		map[string]interface{}{"limit": 10}, "u1")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doReq(t, router, http.MethodPost, "/api/admin/embeddings/missing",
		map[string]interface{}{"scopeId": "global", "limit": 10}, "u1")
	require.Equal(t, http.StatusAccepted, rr.Code)
}

func TestAdminTaskNotFound(t *testing.T) {
	rr := doReq(t, newTestRouter(newMemStore()), http.MethodGet, "/api/admin/tasks/ghost", nil, "u1")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthEndpoint(t *testing.T) {
	rr := doReq(t, newTestRouter(newMemStore()), http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "healthy")
}
