package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	progressKeyPrefix = "lorekeeper:task:progress:"
	progressTTL       = 24 * time.Hour
	resultRetention   = 24 * time.Hour
)

// knownQueues lists every queue Fetch scans when locating a task by id.
var knownQueues = []string{QueuePriority, QueueDefault, QueueLongRunning}

// RedisQueue implements TaskQueue on asynq. Progress for running tasks is
// kept in a Redis hash next to asynq's own state.
type RedisQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewRedisQueue connects the asynq client and inspector to one Redis.
func NewRedisQueue(redisAddr string, log zerolog.Logger) *RedisQueue {
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	return &RedisQueue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		rdb:       redis.NewClient(&redis.Options{Addr: redisAddr}),
		log:       log.With().Str("component", "task-queue").Logger(),
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, queueName string, task Task, timeout time.Duration) (*TaskHandle, error) {
	id := uuid.NewString()
	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.TaskID(id),
		asynq.Retention(resultRetention),
	}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(task.Kind, task.Payload), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "enqueue %s on %s", task.Kind, queueName)
	}

	q.log.Debug().Str("task_id", info.ID).Str("kind", task.Kind).Str("queue", queueName).
		Msg("task enqueued")
	return &TaskHandle{ID: info.ID, Queue: info.Queue}, nil
}

func (q *RedisQueue) Fetch(ctx context.Context, taskID string) (*TaskStatus, error) {
	var info *asynq.TaskInfo
	for _, name := range knownQueues {
		ti, err := q.inspector.GetTaskInfo(name, taskID)
		if err == nil {
			info = ti
			break
		}
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			continue
		}
		return nil, errors.Wrap(err, "inspect task")
	}
	if info == nil {
		return nil, ErrTaskNotFound
	}

	st := &TaskStatus{
		ID:    info.ID,
		Queue: info.Queue,
		Kind:  info.Type,
		State: mapState(info.State),
		Error: info.LastErr,
	}
	if len(info.Result) > 0 {
		st.Result = info.Result
	}
	if st.State == StateRunning {
		st.Progress = q.readProgress(ctx, taskID)
	}
	return st, nil
}

// Close releases the Redis connections.
func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.rdb.Close()
}

func mapState(s asynq.TaskState) string {
	switch s {
	case asynq.TaskStateActive:
		return StateRunning
	case asynq.TaskStateCompleted:
		return StateFinished
	case asynq.TaskStateArchived:
		return StateFailed
	default:
		return StateQueued
	}
}

func (q *RedisQueue) readProgress(ctx context.Context, taskID string) *TaskProgress {
	raw, err := q.rdb.Get(ctx, progressKeyPrefix+taskID).Bytes()
	if err != nil {
		return nil
	}
	var p TaskProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

// writeProgress is called from worker handlers.
func writeProgress(ctx context.Context, rdb *redis.Client, taskID string, p TaskProgress) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	rdb.Set(ctx, progressKeyPrefix+taskID, raw, progressTTL)
}

var _ TaskQueue = (*RedisQueue)(nil)
