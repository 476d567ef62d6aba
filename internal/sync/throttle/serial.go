package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/vendalink/ordersync/internal/pkg/metrics"
)

// SerialQueue dispatches requests one at a time with a fixed delay before
// each dispatch. It is used for providers that enforce a tight global rate
// limit: all callers, across all accounts, share one queue instance, so
// dispatch order is FIFO and at most one request is in flight at any time.
type SerialQueue struct {
	provider string
	delay    time.Duration

	mu      sync.Mutex
	pending []*serialTask
	running bool
}

type serialTask struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

// NewSerialQueue creates a serialized request queue for one provider.
func NewSerialQueue(provider string, delay time.Duration) *SerialQueue {
	return &SerialQueue{
		provider: provider,
		delay:    delay,
	}
}

// Do enqueues fn and blocks until it has been dispatched and completed.
// The error returned by fn is delivered only to this caller; other queued
// callers are unaffected. Results travel through variables captured by fn.
func (q *SerialQueue) Do(ctx context.Context, fn func() error) error {
	t := &serialTask{
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}

	q.mu.Lock()
	q.pending = append(q.pending, t)
	metrics.SetQueueDepth(q.provider, len(q.pending))
	if !q.running {
		q.running = true
		go q.work()
	}
	q.mu.Unlock()

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		// The worker still executes the task eventually but nobody is
		// listening; the buffered channel keeps it from blocking.
		return ctx.Err()
	}
}

// Len returns the number of queued requests not yet dispatched.
func (q *SerialQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// work drains the queue. Exactly one worker runs at a time; enqueues that
// arrive while it is draining are picked up without starting a second one.
func (q *SerialQueue) work() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			metrics.SetQueueDepth(q.provider, 0)
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending = q.pending[1:]
		metrics.SetQueueDepth(q.provider, len(q.pending))
		q.mu.Unlock()

		time.Sleep(q.delay)

		if t.ctx.Err() != nil {
			t.done <- t.ctx.Err()
			continue
		}

		t.done <- t.fn()
	}
}
