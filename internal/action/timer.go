package action

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/alarm-engine/internal/logger"
)

// DefaultWorkers is used when NewTimer is given no positive worker count.
const DefaultWorkers = 4

// taskBuffer is the capacity of the task queue.
const taskBuffer = 256

// Timer runs delayed tasks on a fixed set of workers.
type Timer struct {
	ctx    context.Context //nolint:containedctx // Workers log through it.
	cancel context.CancelFunc
	tasks  chan func()
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Handle cancels a scheduled task.
type Handle struct {
	timer *time.Timer
}

// Cancel stops the task. It reports false when the task already fired or
// was cancelled before.
func (h *Handle) Cancel() bool {
	if h == nil || h.timer == nil {
		return false
	}

	return h.timer.Stop()
}

// NewTimer starts workers goroutines that run submitted tasks until Close.
func NewTimer(ctx context.Context, workers int) *Timer {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Timer{
		ctx:    logger.WithName(ctx, "action-timer"),
		cancel: cancel,
		tasks:  make(chan func(), taskBuffer),
	}

	for range workers {
		t.wg.Go(t.work)
	}

	return t
}

// Schedule runs fn on a worker once delay has elapsed.
func (t *Timer) Schedule(delay time.Duration, fn func()) *Handle {
	return &Handle{
		timer: time.AfterFunc(delay, func() {
			t.Submit(fn)
		}),
	}
}

// Submit queues fn to run on a worker without waiting for a free slot.
// It reports false when the timer is closed.
func (t *Timer) Submit(fn func()) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return false
	}

	select {
	case t.tasks <- fn:
	default:
		t.wg.Go(func() {
			select {
			case t.tasks <- fn:
			case <-t.ctx.Done():
			}
		})
	}

	return true
}

// Close stops the workers and waits for running tasks to return.
// Queued tasks that have not started are dropped.
func (t *Timer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()

		return
	}

	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
}

func (t *Timer) work() {
	for {
		select {
		case <-t.ctx.Done():
			return
		case fn := <-t.tasks:
			t.run(fn)
		}
	}
}

func (t *Timer) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(t.ctx, "action task panicked", "panic", r)
		}
	}()

	fn()
}
