package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/model"
	"github.com/lorekeeper/lorekeeper/internal/queue"
)

const (
	batchTaskTimeout = 10 * time.Minute
	flushTaskTimeout = 5 * time.Minute
)

// BatchEmbedder is the inline re-embedding path. *embeddings.Tracker
// satisfies it.
type BatchEmbedder interface {
	UpdateMany(ctx context.Context, nodeIDs []string, force bool, report embeddings.Progress) (*model.BatchEmbedResult, error)
}

// HookState is a snapshot of the hook's counters for the admin surface.
type HookState struct {
	SyncCount    int  `json:"syncCount"`
	PendingNodes int  `json:"pendingNodes"`
	Threshold    int  `json:"threshold"`
	Background   bool `json:"background"`
}

// Hook accumulates content-bearing node changes across push batches and
// triggers re-embedding once enough batches have landed. Counters are
// process-local; a multi-replica deployment flushes per replica.
type Hook struct {
	mu        stdsync.Mutex
	syncCount int
	pending   map[string]struct{}

	threshold  int
	background bool
	q          queue.TaskQueue
	embedder   BatchEmbedder
	log        zerolog.Logger
}

func NewHook(threshold int, background bool, q queue.TaskQueue, embedder BatchEmbedder, log zerolog.Logger) *Hook {
	if threshold <= 0 {
		threshold = 5
	}
	return &Hook{
		pending:    make(map[string]struct{}),
		threshold:  threshold,
		background: background,
		q:          q,
		embedder:   embedder,
		log:        log.With().Str("component", "sync-hook").Logger(),
	}
}

// ObserveBatch records one applied push batch. Node creates always mark the
// node pending; node updates only when the payload touches title or
// markdown. The sync counter advances once per batch.
func (h *Hook) ObserveBatch(ctx context.Context, changes []model.Change) {
	h.mu.Lock()
	for _, c := range changes {
		if c.Entity != model.EntityNode {
			continue
		}
		switch c.Op {
		case model.OpCreate, model.OpUpsert:
			h.pending[c.EntityID] = struct{}{}
		case model.OpUpdate:
			if touchesContent(c.Payload) {
				h.pending[c.EntityID] = struct{}{}
			}
		}
	}
	h.syncCount++
	due := h.syncCount >= h.threshold
	h.mu.Unlock()

	if due {
		h.flush(ctx, queue.QueueDefault, false)
	}
}

// ForceFlush flushes immediately on the priority queue with force=true.
// Returns the enqueued handle, or the inline batch result when the queue
// path was unavailable.
func (h *Hook) ForceFlush(ctx context.Context) (*queue.TaskHandle, *model.BatchEmbedResult, error) {
	return h.flush(ctx, queue.QueuePriority, true)
}

// State reports the hook's counters without mutating them.
func (h *Hook) State() HookState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HookState{
		SyncCount:    h.syncCount,
		PendingNodes: len(h.pending),
		Threshold:    h.threshold,
		Background:   h.background,
	}
}

// flush atomically drains the pending set, then re-embeds it either via the
// queue or inline. Enqueue failure falls back to the inline path so pending
// work is never dropped.
func (h *Hook) flush(ctx context.Context, queueName string, force bool) (*queue.TaskHandle, *model.BatchEmbedResult, error) {
	h.mu.Lock()
	ids := make([]string, 0, len(h.pending))
	for id := range h.pending {
		ids = append(ids, id)
	}
	h.pending = make(map[string]struct{})
	h.syncCount = 0
	h.mu.Unlock()

	if len(ids) == 0 {
		return nil, &model.BatchEmbedResult{Message: "nothing pending", Errors: []string{}}, nil
	}

	if h.background {
		task, err := queue.NewEmbedBatchTask(ids, force)
		if err == nil {
			timeout := batchTaskTimeout
			if queueName == queue.QueuePriority {
				timeout = flushTaskTimeout
			}
			handle, qerr := h.q.Enqueue(ctx, queueName, task, timeout)
			if qerr == nil {
				h.log.Info().Int("nodes", len(ids)).Str("queue", queueName).Str("task_id", handle.ID).
					Msg("embedding batch enqueued")
				return handle, nil, nil
			}
			h.log.Warn().Err(qerr).Int("nodes", len(ids)).
				Msg("enqueue failed, embedding inline")
		}
	}

	res, err := h.embedder.UpdateMany(ctx, ids, force, nil)
	if err != nil {
		h.log.Error().Stack().Err(err).Int("nodes", len(ids)).Msg("inline embedding batch failed")
		return nil, nil, err
	}
	return nil, res, nil
}

func touchesContent(payload map[string]interface{}) bool {
	if payload == nil {
		return false
	}
	if _, ok := payload["title"]; ok {
		return true
	}
	_, ok := payload["markdown"]
	return ok
}
