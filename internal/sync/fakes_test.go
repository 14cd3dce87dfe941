package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/queue"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// fakeStore records every operation as "family.op id" and keeps node
// projections in memory for pull round trips. Setting failOn makes the
// matching operation return an error.
type fakeStore struct {
	ops    []string
	failOn string
	nodes  map[string]model.NodeProjection
}

func newFakeStore() *fakeStore {
	return &fakeStore{nodes: make(map[string]model.NodeProjection)}
}

func (f *fakeStore) record(op string) error {
	f.ops = append(f.ops, op)
	if f.failOn != "" && op == f.failOn {
		return fmt.Errorf("store failure at %s", op)
	}
	return nil
}

func (f *fakeStore) Nodes() store.Nodes { return &fakeNodes{f} }
func (f *fakeStore) Edges() store.Edges { return &fakeEdges{f} }
func (f *fakeStore) Folders() store.Folders { return &fakeFolders{f} }
func (f *fakeStore) Chats() store.Chats { return &fakeChats{f} }
func (f *fakeStore) Embeddings() store.Embeddings { return nil }

type fakeNodes struct{ s *fakeStore }

func (n *fakeNodes) Upsert(_ context.Context, _ store.Scope, id, nodeType string, props map[string]interface{}, ts int64) error {
	if err := n.s.record("node.upsert " + id); err != nil {
		return err
	}
	title, _ := props["title"].(string)
	if nodeType == "" {
		nodeType = "Note"
	}
	n.s.nodes[id] = model.NodeProjection{ID: id, Type: nodeType, Title: title, UpdatedAt: ts, CreatedAt: ts}
	return nil
}

func (n *fakeNodes) Merge(_ context.Context, _ store.Scope, id string, props map[string]interface{}, ts int64) error {
	if err := n.s.record("node.merge " + id); err != nil {
		return err
	}
	p, ok := n.s.nodes[id]
	if !ok {
		return nil // ownership miss is a silent no-op
	}
	if title, ok := props["title"].(string); ok {
		p.Title = title
	}
	p.UpdatedAt = ts
	n.s.nodes[id] = p
	return nil
}

func (n *fakeNodes) Delete(_ context.Context, _ store.Scope, id string) error {
	if err := n.s.record("node.delete " + id); err != nil {
		return err
	}
	delete(n.s.nodes, id)
	return nil
}

func (n *fakeNodes) PullSince(_ context.Context, _ store.Scope, sinceTs int64) ([]model.NodeProjection, error) {
	var out []model.NodeProjection
	for _, p := range n.s.nodes {
		if p.UpdatedAt > sinceTs {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeEdges struct{ s *fakeStore }

func (e *fakeEdges) Upsert(_ context.Context, _ store.Scope, id, relType, fromID, toID string, _ map[string]interface{}, _ int64) error {
	return e.s.record(fmt.Sprintf("edge.upsert %s %s %s->%s", id, relType, fromID, toID))
}
func (e *fakeEdges) Merge(_ context.Context, _ store.Scope, id string, _ map[string]interface{}, _ int64) error {
	return e.s.record("edge.merge " + id)
}
func (e *fakeEdges) Delete(_ context.Context, _ store.Scope, id string) error {
	return e.s.record("edge.delete " + id)
}
func (e *fakeEdges) PullSince(context.Context, store.Scope, int64) ([]model.EdgeProjection, error) {
	return nil, nil
}

type fakeFolders struct{ s *fakeStore }

func (f *fakeFolders) Upsert(_ context.Context, _ store.Scope, id string, _ map[string]interface{}, _ int64) error {
	return f.s.record("folder.upsert " + id)
}
func (f *fakeFolders) Delete(_ context.Context, _ store.Scope, id string) error {
	return f.s.record("folder.delete " + id)
}
func (f *fakeFolders) PullSince(context.Context, store.Scope, int64) ([]model.Folder, error) {
	return nil, nil
}
func (f *fakeFolders) ListTree(context.Context, store.Scope) ([]model.Folder, error) {
	return nil, nil
}

type fakeChats struct{ s *fakeStore }

func (c *fakeChats) UpsertSession(_ context.Context, _ store.Scope, id string, _ map[string]interface{}, _ int64) error {
	return c.s.record("chat.upsert " + id)
}
func (c *fakeChats) DeleteSession(_ context.Context, _ store.Scope, id string) error {
	return c.s.record("chat.delete " + id)
}
func (c *fakeChats) AppendMessage(_ context.Context, _ store.Scope, id, chatID string, _ map[string]interface{}, _ int64) error {
	return c.s.record(fmt.Sprintf("message.append %s->%s", id, chatID))
}
func (c *fakeChats) DeleteMessage(_ context.Context, _ store.Scope, id string) error {
	return c.s.record("message.delete " + id)
}
func (c *fakeChats) SessionsSince(context.Context, store.Scope, int64) ([]model.ChatSession, error) {
	return nil, nil
}
func (c *fakeChats) MessagesSince(context.Context, store.Scope, int64) ([]model.ChatMessage, error) {
	return nil, nil
}
func (c *fakeChats) Cleanup(_ context.Context, _ store.Scope, cutoffTs int64) (*model.CleanupReport, error) {
	if err := c.s.record("chat.cleanup"); err != nil {
		return nil, err
	}
	return &model.CleanupReport{CutoffTs: cutoffTs}, nil
}
func (c *fakeChats) CleanupStatus(_ context.Context, _ store.Scope, cutoffTs int64) (*model.CleanupStatus, error) {
	return &model.CleanupStatus{CutoffTs: cutoffTs}, nil
}

// fakeObserver counts batch handoffs.
type fakeObserver struct {
	batches [][]model.Change
}

func (o *fakeObserver) ObserveBatch(_ context.Context, changes []model.Change) {
	o.batches = append(o.batches, changes)
}

// fakeQueue records enqueued tasks and optionally fails.
type fakeQueue struct {
	enqueued []struct {
		queueName string
		task      queue.Task
	}
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, queueName string, task queue.Task, _ time.Duration) (*queue.TaskHandle, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.enqueued = append(q.enqueued, struct {
		queueName string
		task      queue.Task
	}{queueName, task})
	return &queue.TaskHandle{ID: fmt.Sprintf("task-%d", len(q.enqueued)), Queue: queueName}, nil
}

func (q *fakeQueue) Fetch(context.Context, string) (*queue.TaskStatus, error) {
	return nil, queue.ErrTaskNotFound
}

func (q *fakeQueue) lastPayload() (queue.EmbedBatchPayload, error) {
	var p queue.EmbedBatchPayload
	if len(q.enqueued) == 0 {
		return p, fmt.Errorf("nothing enqueued")
	}
	err := json.Unmarshal(q.enqueued[len(q.enqueued)-1].task.Payload, &p)
	return p, err
}

// fakeEmbedder records inline UpdateMany calls.
type fakeEmbedder struct {
	calls []struct {
		ids   []string
		force bool
	}
	err error
}

func (e *fakeEmbedder) UpdateMany(_ context.Context, ids []string, force bool, _ embeddings.Progress) (*model.BatchEmbedResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.calls = append(e.calls, struct {
		ids   []string
		force bool
	}{ids, force})
	return &model.BatchEmbedResult{Processed: len(ids), Updated: len(ids), Errors: []string{}}, nil
}
