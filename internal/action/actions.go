package action

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/logger"
	"github.com/oshokin/alarm-engine/internal/metrics"
	"github.com/oshokin/alarm-engine/internal/tree"
)

// Action detail prefixes.
const (
	MailtoPrefix  = "mailto:"
	CommandPrefix = "cmd:"
	InfoPVPrefix  = "infopv:"
)

// Dispatcher performs an action for an item.
type Dispatcher interface {
	Dispatch(ctx context.Context, item *tree.Item, action alarm.TitleDetailDelay)
}

// Options are shared by all controllers of an engine.
type Options struct {
	// Timer runs delayed actions.
	Timer *Timer
	// Dispatcher performs actions.
	Dispatcher Dispatcher
	// Followup lists detail prefixes of actions dispatched again on clear.
	Followup []string
}

// pending is one scheduled action. Its address identifies the schedule so
// a late timer never consumes a newer entry for the same action.
type pending struct {
	handle *Handle
}

// Actions decides when the automated actions of one item fire.
type Actions struct {
	ctx     context.Context //nolint:containedctx // Timer callbacks dispatch with it.
	item    *tree.Item
	actions []alarm.TitleDetailDelay
	opts    Options

	// notified is the severity that last triggered scheduling.
	notified atomic.Int32

	mu        sync.Mutex
	scheduled map[alarm.TitleDetailDelay]*pending
	followups []alarm.TitleDetailDelay
}

// IsInfoPV reports whether the action writes an info PV.
func IsInfoPV(action alarm.TitleDetailDelay) bool {
	return strings.HasPrefix(action.Detail, InfoPVPrefix)
}

// New creates a controller for item starting at initial severity,
// so an item restored in alarm does not trigger again.
func New(
	ctx context.Context,
	item *tree.Item,
	initial alarm.Severity,
	actions []alarm.TitleDetailDelay,
	opts Options,
) *Actions {
	a := &Actions{
		ctx:       logger.WithKV(ctx, "item", item.PathName()),
		item:      item,
		actions:   actions,
		opts:      opts,
		scheduled: make(map[alarm.TitleDetailDelay]*pending, len(actions)),
	}
	a.notified.Store(int32(initial))

	return a
}

// Item returns the controlled item.
func (a *Actions) Item() *tree.Item {
	return a.item
}

// NotifiedSeverity returns the severity that last triggered scheduling.
func (a *Actions) NotifiedSeverity() alarm.Severity {
	return alarm.Severity(a.notified.Load())
}

// HandleSeverityUpdate reacts to a new severity of the item. It never blocks.
func (a *Actions) HandleSeverityUpdate(severity alarm.Severity) {
	for _, action := range a.actions {
		if IsInfoPV(action) {
			a.opts.Dispatcher.Dispatch(a.ctx, a.item, action)
		}
	}

	if severity.IsActive() {
		if a.escalate(severity) {
			a.schedule()
		}

		return
	}

	if alarm.Severity(a.notified.Swap(int32(alarm.OK))) == alarm.OK {
		return
	}

	a.clear()
}

// Cancel stops every scheduled action and forgets pending follow-ups.
func (a *Actions) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelScheduled()
	a.followups = nil
}

// Scheduled returns the number of actions waiting for their delay.
func (a *Actions) Scheduled() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.scheduled)
}

// escalate stores severity if it ranks above the notified one.
func (a *Actions) escalate(severity alarm.Severity) bool {
	for {
		old := a.notified.Load()
		if int32(severity) <= old {
			return false
		}

		if a.notified.CompareAndSwap(old, int32(severity)) {
			return true
		}
	}
}

func (a *Actions) schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, action := range a.actions {
		if IsInfoPV(action) {
			continue
		}

		if _, ok := a.scheduled[action]; ok {
			continue
		}

		entry := new(pending)
		a.scheduled[action] = entry
		entry.handle = a.opts.Timer.Schedule(time.Duration(action.Delay)*time.Second, func() {
			a.fire(action, entry)
		})

		metrics.RecordScheduled()
		logger.DebugKV(a.ctx, "action scheduled", "action", action.String())
	}
}

func (a *Actions) fire(action alarm.TitleDetailDelay, entry *pending) {
	a.mu.Lock()
	if a.scheduled[action] != entry {
		a.mu.Unlock()

		return
	}

	delete(a.scheduled, action)
	a.mu.Unlock()

	a.opts.Dispatcher.Dispatch(a.ctx, a.item, action)

	if !a.isFollowup(action) {
		return
	}

	a.mu.Lock()
	a.followups = append(a.followups, action)
	a.mu.Unlock()
}

func (a *Actions) clear() {
	a.mu.Lock()
	a.cancelScheduled()
	followups := a.followups
	a.followups = nil
	a.mu.Unlock()

	for _, action := range followups {
		if !a.opts.Timer.Submit(func() {
			a.opts.Dispatcher.Dispatch(a.ctx, a.item, action)
		}) {
			logger.WarnKV(a.ctx, "follow-up dropped, timer closed", "action", action.String())
		}
	}
}

// cancelScheduled must be called with mu held.
func (a *Actions) cancelScheduled() {
	for action, entry := range a.scheduled {
		delete(a.scheduled, action)

		if entry.handle.Cancel() {
			metrics.RecordCancelled()
		}
	}
}

func (a *Actions) isFollowup(action alarm.TitleDetailDelay) bool {
	for _, prefix := range a.opts.Followup {
		if strings.HasPrefix(action.Detail, prefix) {
			return true
		}
	}

	return false
}
