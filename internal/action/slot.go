package action

import (
	"context"
	"sync/atomic"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/tree"
)

// Slot holds the current controller of one item and replaces it when the
// item's enablement or actions change.
type Slot struct {
	opts    Options
	current atomic.Pointer[Actions]
}

// NewSlot returns an empty slot.
func NewSlot(opts Options) *Slot {
	return &Slot{opts: opts}
}

// Configure installs a controller when the item is enabled and has actions,
// and cancels the one it replaces.
func (s *Slot) Configure(
	ctx context.Context,
	item *tree.Item,
	initial alarm.Severity,
	enabled bool,
	actions []alarm.TitleDetailDelay,
) {
	var next *Actions
	if enabled && len(actions) > 0 {
		next = New(ctx, item, initial, actions, s.opts)
	}

	if previous := s.current.Swap(next); previous != nil {
		previous.Cancel()
	}
}

// Update forwards a severity change to the controller, if any.
func (s *Slot) Update(severity alarm.Severity) {
	if current := s.current.Load(); current != nil {
		current.HandleSeverityUpdate(severity)
	}
}

// Cancel removes and cancels the controller.
func (s *Slot) Cancel() {
	if previous := s.current.Swap(nil); previous != nil {
		previous.Cancel()
	}
}

// Active returns the current controller or nil.
func (s *Slot) Active() *Actions {
	return s.current.Load()
}
