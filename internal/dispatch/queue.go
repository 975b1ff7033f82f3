package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("queue stopped")

const defaultLaneSize = 100

// Queue manages per-key lanes with a global concurrency semaphore. Each key
// gets its own FIFO channel (lane) so that items for one key are processed
// sequentially, while the semaphore limits the total number of concurrent
// processors across all keys. A lane's goroutine exits once its lane is
// drained and is recreated on the next Enqueue.
type Queue[T any] struct {
	name      string
	lanes     map[string]chan T
	laneSize  int
	semaphore *semaphore.Weighted
	processor func(context.Context, T) error
	active    atomic.Int64
	stopped   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewQueue creates a Queue that allows up to maxConcurrent items to be
// processed simultaneously across all lanes.
func NewQueue[T any](name string, maxConcurrent int64) *Queue[T] {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Queue[T]{
		name:      name,
		lanes:     make(map[string]chan T),
		laneSize:  defaultLaneSize,
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// SetLaneSize sets the buffer of lanes created after the call.
func (q *Queue[T]) SetLaneSize(n int) {
	if n > 0 {
		q.laneSize = n
	}
}

// SetProcessor sets the function invoked for each dequeued item.
func (q *Queue[T]) SetProcessor(fn func(context.Context, T) error) {
	q.processor = fn
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue[T]) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop closes all lanes and waits for their buffered items to be processed
// before cancelling the queue's context. Enqueue fails with ErrStopped from
// the moment Stop is called.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	q.stopped = true
	for key, lane := range q.lanes {
		close(lane)
		delete(q.lanes, key)
	}
	q.mu.Unlock()
	q.wg.Wait()
	if q.cancel != nil {
		q.cancel()
	}
}

// Enqueue adds an item to the key's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue[T]) Enqueue(key string, item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped || q.ctx == nil || q.ctx.Err() != nil {
		return ErrStopped
	}

	lane, exists := q.lanes[key]
	if !exists {
		lane = make(chan T, q.laneSize)
		q.lanes[key] = lane
		q.wg.Add(1)
		go q.processLane(key, lane)
	}

	select {
	case lane <- item:
		return nil
	default:
		return fmt.Errorf("%s queue full for %s", q.name, key)
	}
}

// processLane drains a single lane, acquiring a semaphore slot before
// running the processor synchronously.
func (q *Queue[T]) processLane(key string, lane chan T) {
	defer q.wg.Done()
	for {
		select {
		case item, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				q.abandon(key, lane, 1)
				return
			}
			if q.processor != nil {
				q.active.Add(1)
				if err := q.processor(q.ctx, item); err != nil {
					slog.Error("queued item failed", "queue", q.name, "lane", key, "error", err)
				}
				q.active.Add(-1)
			}
			q.semaphore.Release(1)

			if q.retire(key, lane) {
				return
			}
		case <-q.ctx.Done():
			q.abandon(key, lane, 0)
			return
		}
	}
}

// abandon unregisters a lane whose context was cancelled and reports the
// items it still held.
func (q *Queue[T]) abandon(key string, lane chan T, inHand int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if current, ok := q.lanes[key]; ok && current == lane {
		delete(q.lanes, key)
	}
	if dropped := len(lane) + inHand; dropped > 0 {
		slog.Warn("queue cancelled with pending items", "queue", q.name, "lane", key, "dropped", dropped)
	}
}

// retire removes an empty lane from the map. Enqueue sends under the same
// lock, so an item can never land in a retired lane.
func (q *Queue[T]) retire(key string, lane chan T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(lane) > 0 {
		return false
	}
	if current, ok := q.lanes[key]; ok && current == lane {
		delete(q.lanes, key)
		return true
	}
	// Stop already closed and removed the lane.
	return false
}

// Lanes returns the number of live lanes.
func (q *Queue[T]) Lanes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}

// WaitIdle blocks until no items are actively being processed and no lanes
// hold pending items, or the timeout expires. Returns true if idle.
func (q *Queue[T]) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 && q.Lanes() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}
