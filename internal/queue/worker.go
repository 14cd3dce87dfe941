package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/store"
)

// Worker consumes the background queues and runs embedding and retention
// tasks against the store.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	tracker *embeddings.Tracker
	store   store.Store
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewWorker wires the asynq server with weighted queues. priority drains
// ahead of default, long_running trails both.
func NewWorker(redisAddr string, tracker *embeddings.Tracker, st store.Store, log zerolog.Logger) *Worker {
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			QueuePriority:    6,
			QueueDefault:     3,
			QueueLongRunning: 1,
		},
	})

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		tracker: tracker,
		store:   st,
		rdb:     redis.NewClient(&redis.Options{Addr: redisAddr}),
		log:     log.With().Str("component", "embed-worker").Logger(),
	}
	w.mux.HandleFunc(TypeEmbedBatch, w.handleEmbedBatch)
	w.mux.HandleFunc(TypeEmbedCampaign, w.handleEmbedCampaign)
	w.mux.HandleFunc(TypeEmbedMissing, w.handleEmbedMissing)
	w.mux.HandleFunc(TypeChatCleanup, w.handleChatCleanup)
	return w
}

// Run blocks until the server stops.
func (w *Worker) Run() error { return w.server.Run(w.mux) }

// Shutdown drains in-flight tasks and stops the server.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	_ = w.rdb.Close()
}

func (w *Worker) handleEmbedBatch(ctx context.Context, t *asynq.Task) error {
	var p EmbedBatchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return errors.Wrap(err, "decode embed:batch payload")
	}
	w.log.Info().Int("nodes", len(p.NodeIDs)).Bool("force", p.Force).Msg("embedding batch")

	res, err := w.tracker.UpdateMany(ctx, p.NodeIDs, p.Force, w.progressFn(ctx))
	if err != nil {
		return err
	}
	return w.writeResult(t, res)
}

func (w *Worker) handleEmbedCampaign(ctx context.Context, t *asynq.Task) error {
	var p EmbedCampaignPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return errors.Wrap(err, "decode embed:campaign payload")
	}
	sc := store.Scope{UserID: p.UserID, ScopeID: p.ScopeID}
	w.log.Info().Str("scope", p.ScopeID).Bool("force", p.Force).Msg("embedding scope")

	res, err := w.tracker.UpdateCampaign(ctx, sc, p.Force, w.progressFn(ctx))
	if err != nil {
		return err
	}
	return w.writeResult(t, res)
}

func (w *Worker) handleEmbedMissing(ctx context.Context, t *asynq.Task) error {
	var p EmbedMissingPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return errors.Wrap(err, "decode embed:missing payload")
	}
	sc := store.Scope{UserID: p.UserID, ScopeID: p.ScopeID}

	res, err := w.tracker.EmbedMissing(ctx, sc, p.Limit, w.progressFn(ctx))
	if err != nil {
		return err
	}
	return w.writeResult(t, res)
}

func (w *Worker) handleChatCleanup(ctx context.Context, t *asynq.Task) error {
	var p ChatCleanupPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return errors.Wrap(err, "decode chats:cleanup payload")
	}
	sc := store.Scope{UserID: p.UserID, ScopeID: p.ScopeID}
	cutoff := p.CutoffTs
	if cutoff == 0 {
		cutoff = time.Now().AddDate(0, 0, -30).UnixMilli()
	}

	report, err := w.store.Chats().Cleanup(ctx, sc, cutoff)
	if err != nil {
		return err
	}
	w.log.Info().Int("chats", report.DeletedChats).Int("messages", report.DeletedMessages).
		Msg("chat retention sweep finished")
	return w.writeResult(t, report)
}

// progressFn writes batch progress keyed by the running task's id.
func (w *Worker) progressFn(ctx context.Context) embeddings.Progress {
	id, ok := asynq.GetTaskID(ctx)
	if !ok {
		return nil
	}
	return func(done, total int) {
		writeProgress(ctx, w.rdb, id, TaskProgress{Done: done, Total: total})
	}
}

func (w *Worker) writeResult(t *asynq.Task, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := t.ResultWriter().Write(b); err != nil {
		w.log.Warn().Err(err).Msg("failed to write task result")
	}
	return nil
}
