package notify

import (
	"context"
	"time"

	"storefront/internal/logging"
)

const enqueueTimeout = 5 * time.Second

// Dispatcher hands a notification off for delivery. Call sites log a returned error and
// carry on: a notification never fails the operation that triggered it.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}

// Queue accepts tasks for asynchronous delivery by a Worker.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
}

// Direct delivers in the caller's goroutine.
type Direct struct {
	deliverer Deliverer
}

func NewDirect(d Deliverer) *Direct {
	return &Direct{deliverer: d}
}

func (d *Direct) Dispatch(ctx context.Context, task Task) error {
	return d.deliverer.Send(ctx, task)
}

// Queued enqueues tasks and returns at once. When the queue rejects a task it is
// delivered synchronously instead.
type Queued struct {
	queue    Queue
	fallback Deliverer
}

func NewQueued(q Queue, fallback Deliverer) *Queued {
	return &Queued{queue: q, fallback: fallback}
}

func (q *Queued) Dispatch(ctx context.Context, task Task) error {
	enqueueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	err := q.queue.Enqueue(enqueueCtx, task)
	cancel()
	if err == nil {
		return nil
	}
	logging.FromContext(ctx).Warn("enqueue failed, sending synchronously",
		"template", task.Template, "error", err)
	return q.fallback.Send(ctx, task)
}

// New selects the dispatcher implementation. async without a queue degrades to Direct.
func New(async bool, q Queue, d Deliverer) Dispatcher {
	if async && q != nil {
		return NewQueued(q, d)
	}
	return NewDirect(d)
}
