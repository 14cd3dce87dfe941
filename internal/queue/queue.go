// Package queue defines the background task contract used by the sync
// invalidation hook and the admin surface, plus its Redis-backed
// implementation.
package queue

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Queue names, in descending scheduling priority.
const (
	QueuePriority    = "priority"
	QueueDefault     = "default"
	QueueLongRunning = "long_running"
)

// Task kinds.
const (
	TypeEmbedBatch    = "embed:batch"
	TypeEmbedCampaign = "embed:campaign"
	TypeEmbedMissing  = "embed:missing"
	TypeChatCleanup   = "chats:cleanup"
)

// Task states reported by Fetch.
const (
	StateQueued   = "queued"
	StateRunning  = "running"
	StateFinished = "finished"
	StateFailed   = "failed"
	StateCanceled = "canceled"
)

// ErrTaskNotFound is returned by Fetch for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// Task is a kind plus an opaque JSON payload.
type Task struct {
	Kind    string
	Payload []byte
}

// TaskHandle identifies an enqueued task.
type TaskHandle struct {
	ID    string `json:"taskId"`
	Queue string `json:"queue"`
}

// TaskProgress is the live progress a running handler reports.
type TaskProgress struct {
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// TaskStatus is the point-in-time view of a task.
type TaskStatus struct {
	ID       string        `json:"taskId"`
	Queue    string        `json:"queue"`
	Kind     string        `json:"kind"`
	State    string        `json:"state"`
	Progress *TaskProgress `json:"progress,omitempty"`
	Result   []byte        `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Enqueue(ctx context.Context, queueName string, task Task, timeout time.Duration) (*TaskHandle, error)
	Fetch(ctx context.Context, taskID string) (*TaskStatus, error)
}
