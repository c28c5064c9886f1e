package infopv

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/alarm-engine/internal/logger"
	"github.com/oshokin/alarm-engine/internal/metrics"
	"github.com/oshokin/alarm-engine/internal/tree"
)

// Defaults for Options.
const (
	DefaultGracePeriod   = 10 * time.Second
	DefaultRetryInterval = time.Second
	DefaultWriteTimeout  = 5 * time.Second
	DefaultWriters       = 8
)

// Options configure an Updater.
type Options struct {
	// GracePeriod is how long a failing write is retried.
	GracePeriod time.Duration
	// RetryInterval is the pause between writes of a failing PV.
	RetryInterval time.Duration
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
	// Writers limits the writes running at once.
	Writers int
	// MaxAlarms limits the alarms listed by Publish.
	MaxAlarms int
}

// update is the latest text pending for a PV.
type update struct {
	text string
	// since is when the text was queued.
	since time.Time
	// tried is the time of the last failed write.
	tried time.Time
}

// Updater writes PV values in the background. Every PV is written on its
// own, so a slow or failing PV never delays the others.
type Updater struct {
	ctx    context.Context //nolint:containedctx // The write loop logs through it.
	cancel context.CancelFunc
	writer Writer
	opts   Options
	wg     sync.WaitGroup
	writes errgroup.Group
	wake   chan struct{}

	mu      sync.Mutex
	pending map[string]*update
	// order lists pending PVs in arrival order.
	order []string
	// writing holds the PVs with a write in progress.
	writing map[string]bool
}

// NewUpdater starts the write loop.
func NewUpdater(ctx context.Context, writer Writer, opts Options) *Updater {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}

	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	if opts.Writers <= 0 {
		opts.Writers = DefaultWriters
	}

	if opts.MaxAlarms <= 0 {
		opts.MaxAlarms = DefaultMaxAlarms
	}

	ctx, cancel := context.WithCancel(logger.WithName(ctx, "infopv"))
	u := &Updater{
		ctx:     ctx,
		cancel:  cancel,
		writer:  writer,
		opts:    opts,
		wake:    make(chan struct{}, 1),
		pending: make(map[string]*update),
		writing: make(map[string]bool),
	}

	u.writes.SetLimit(opts.Writers)
	u.wg.Go(u.run)

	return u
}

// Publish queues the summary of item for pvName.
func (u *Updater) Publish(item *tree.Item, pvName string) {
	u.Update(pvName, Summary(item, u.opts.MaxAlarms))
}

// Update queues text for pvName, replacing any value not yet written.
func (u *Updater) Update(pvName, text string) {
	u.mu.Lock()
	if _, ok := u.pending[pvName]; !ok {
		u.order = append(u.order, pvName)
	}

	u.pending[pvName] = &update{text: text, since: time.Now()}
	u.mu.Unlock()

	u.signal()
}

// Pending returns the number of PVs waiting to be written.
func (u *Updater) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.pending)
}

// Close stops the write loop and waits for running writes. Unwritten
// values are dropped.
func (u *Updater) Close() {
	u.cancel()
	u.wg.Wait()
	_ = u.writes.Wait() //nolint:errcheck // Writes never return errors to the group.
}

func (u *Updater) signal() {
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

func (u *Updater) run() {
	for {
		var retry <-chan time.Time
		if wait, ok := u.flush(); ok {
			retry = time.After(wait)
		}

		select {
		case <-u.ctx.Done():
			return
		case <-u.wake:
		case <-retry:
		}
	}
}

// flush starts a write for every pending PV that is neither being written
// nor waiting out its retry interval. It returns how long until the next
// such PV is due, and false when completions or updates will wake the loop.
func (u *Updater) flush() (time.Duration, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var (
		wait    time.Duration
		waiting bool
	)

	for _, pvName := range u.order {
		if u.ctx.Err() != nil {
			return 0, false
		}

		if u.writing[pvName] {
			continue
		}

		pending := u.pending[pvName]
		if !pending.tried.IsZero() {
			if left := u.opts.RetryInterval - time.Since(pending.tried); left > 0 {
				if !waiting || left < wait {
					wait, waiting = left, true
				}

				continue
			}
		}

		started := u.writes.TryGo(func() error {
			u.writeOne(pvName, pending)

			return nil
		})
		if !started {
			// Every writer is busy; a finishing write wakes the loop.
			break
		}

		u.writing[pvName] = true
	}

	return wait, waiting
}

// writeOne writes pending and settles its outcome.
func (u *Updater) writeOne(pvName string, pending *update) {
	err := u.write(pvName, pending.text)

	u.mu.Lock()
	delete(u.writing, pvName)

	switch {
	case u.pending[pvName] != pending:
		// Replaced while writing; the next flush writes the new text.
	case err == nil:
		u.forget(pvName)
	case time.Since(pending.since) >= u.opts.GracePeriod:
		u.forget(pvName)
		logger.WarnKV(u.ctx, "giving up on info PV update", "pv", pvName, "error", err)
		metrics.RecordInfoPVWrite(metrics.ResultSkipped)
	default:
		pending.tried = time.Now()
	}
	u.mu.Unlock()

	u.signal()
}

// forget must be called with mu held.
func (u *Updater) forget(pvName string) {
	delete(u.pending, pvName)
	u.order = slices.DeleteFunc(u.order, func(name string) bool { return name == pvName })
}

func (u *Updater) write(pvName, text string) error {
	ctx, cancel := context.WithTimeout(u.ctx, u.opts.WriteTimeout)
	defer cancel()

	if err := u.writer.Write(ctx, pvName, text); err != nil {
		logger.DebugKV(u.ctx, "info PV write failed", "pv", pvName, "error", err)
		metrics.RecordInfoPVWrite(metrics.ResultFailed)

		return err
	}

	metrics.RecordInfoPVWrite(metrics.ResultOK)

	return nil
}
