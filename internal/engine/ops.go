package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/logger"
	"github.com/oshokin/alarm-engine/internal/metrics"
	"github.com/oshokin/alarm-engine/internal/repository/state"
	"github.com/oshokin/alarm-engine/internal/tree"
)

// Configure applies node to the item at path, creating missing items along
// the way, and then configures node's children below it. An item whose
// kind (pv or container) changes is replaced. It reports whether anything
// changed.
func (e *Engine) Configure(ctx context.Context, path string, node *config.TreeNode) (bool, error) {
	if err := config.ValidateTree(node); err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.root == nil {
		return false, ErrNotLoaded
	}

	elements := tree.SplitPath(path)
	if len(elements) == 0 || elements[0] != e.root.Name() || elements[len(elements)-1] != node.Name {
		return false, fmt.Errorf("%w: %q for %q", ErrInvalidPath, path, node.Name)
	}

	parent := e.root
	if len(elements) == 1 {
		parent = nil
	}

	for _, name := range elements[1 : max(len(elements)-1, 1)] {
		child := parent.Child(name)
		if child == nil {
			child = tree.New(parent, name)
			if err := child.AddToParent(parent); err != nil {
				return false, err
			}

			e.configureSlot(child)
		}

		if child.IsLeaf() {
			return false, fmt.Errorf("%w: %s is a pv", ErrInvalidPath, child.PathName())
		}

		parent = child
	}

	changed, err := e.configure(ctx, parent, node)
	if err != nil {
		return false, err
	}

	if changed {
		e.persist()
	}

	return changed, nil
}

// configure must be called with mu held. A nil parent addresses the root.
func (e *Engine) configure(ctx context.Context, parent *tree.Item, node *config.TreeNode) (bool, error) {
	var item *tree.Item
	if parent == nil {
		item = e.root
	} else {
		item = parent.Child(node.Name)
	}

	if item != nil && item.IsLeaf() != node.PV {
		if parent == nil {
			return false, fmt.Errorf("%w: root cannot be a pv", ErrInvalidPath)
		}

		e.detach(item)
		item = nil
	}

	var changed bool

	if item == nil {
		settings := *node
		settings.Children = nil

		item = e.build(parent, &settings)
		if err := item.AddToParent(parent); err != nil {
			return false, err
		}

		e.configureSlot(item)

		changed = true

		logger.InfoKV(ctx, "alarm item added", "path", item.PathName())
	} else {
		var actionsChanged bool

		wasEnabled := item.IsEnabled()

		changed, actionsChanged = apply(item, node)
		if item.IsEnabled() != wasEnabled {
			e.showEnablement(ctx, item)
		}

		if actionsChanged {
			e.configureSlot(item)
		}
	}

	for _, child := range node.Children {
		childChanged, err := e.configure(ctx, item, child)
		if err != nil {
			return changed, err
		}

		changed = changed || childChanged
	}

	return changed, nil
}

// showEnablement must be called with mu held, before the slot of item is
// configured again. A disabled item is cleared to OK; an enabled one shows
// the current state of its source again. The controller being replaced is
// not told, so disabling sends no follow-ups.
func (e *Engine) showEnablement(ctx context.Context, item *tree.Item) {
	next := enablementState(item)
	if !item.SetState(next) {
		return
	}

	metrics.RecordStateUpdate(next.Severity.String())

	logger.InfoKV(ctx, "alarm item enablement changed",
		"path", item.PathName(), "enabled", item.IsEnabled(), "state", next.String())
}

// enablementState returns the state an item shows for its enablement.
func enablementState(item *tree.Item) alarm.State {
	current := item.CurrentState()
	if item.IsEnabled() {
		return current
	}

	return alarm.NewState(alarm.OK, DisabledMessage, current.Value, time.Now())
}

// Remove detaches the item at path with its subtree and cancels their actions.
func (e *Engine) Remove(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := e.find(path)
	if err != nil {
		return err
	}

	if item == e.root {
		return fmt.Errorf("%w: the root cannot be removed", ErrInvalidPath)
	}

	e.detach(item)
	e.persist()

	logger.InfoKV(ctx, "alarm item removed", "path", path)

	return nil
}

// detach must be called with mu held.
func (e *Engine) detach(item *tree.Item) {
	item.Walk(func(removed *tree.Item) {
		if slot, ok := e.slots[removed.PathName()]; ok {
			slot.Cancel()
			delete(e.slots, removed.PathName())
		}

		delete(e.restored, removed.PathName())
	})

	item.DetachFromParent()
}

// UpdateState sets the alarm state of the item at path and, when given, the
// current state received from the source. A sample older than the shown
// state only replaces it when it is more urgent. Disabled items stay OK
// with the Disabled message.
// It reports whether the alarm state changed.
func (e *Engine) UpdateState(ctx context.Context, path string, next alarm.State, current *alarm.State) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	item, err := e.find(path)
	if err != nil {
		return false, err
	}

	if !item.IsEnabled() {
		// The sample is shown once the item is enabled again.
		if current == nil {
			sample := next
			current = &sample
		}

		next = alarm.NewState(alarm.OK, DisabledMessage, next.Value, next.Time)
	}

	if current != nil {
		item.SetCurrentState(*current)
	}

	shown := item.State()
	if next.Time.Before(shown.Time) && !next.HasHigherUpdatePriority(shown) {
		logger.DebugKV(ctx, "stale alarm state ignored", "path", path, "state", next.String())

		return false, nil
	}

	if !item.SetState(next) {
		return false, nil
	}

	e.recordChange(item, next.Severity)
	e.persist()

	logger.DebugKV(ctx, "alarm state updated", "path", path, "state", next.String())

	return true, nil
}

// Acknowledge acknowledges, or with ack false un-acknowledges, every leaf
// at or below path.
func (e *Engine) Acknowledge(ctx context.Context, path string, ack bool, actor *alarm.Actor) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	item, err := e.find(path)
	if err != nil {
		return err
	}

	var changed int

	for _, leaf := range item.Leaves() {
		next := acknowledged(leaf.State(), leaf.CurrentState(), ack)
		if !leaf.SetState(next) {
			continue
		}

		e.recordChange(leaf, next.Severity)

		changed++
	}

	if changed > 0 {
		e.persist()
	}

	logger.InfoKV(ctx, "alarm acknowledgement",
		"path", path, "acknowledge", ack, "actor", actor.String(), "changed", changed)

	return nil
}

// acknowledged returns the state a leaf moves to. Acknowledging a leaf
// whose source is back to OK clears it; un-acknowledging shows the current
// state again.
func acknowledged(shown, current alarm.State, ack bool) alarm.State {
	if !ack {
		return current.Unacknowledged()
	}

	if current.Severity == alarm.OK {
		return alarm.ClearState(current.Value, current.Time)
	}

	return shown.Acknowledged(&current)
}

// persist marks the states changed and wakes the saver.
func (e *Engine) persist() {
	if e.repo == nil {
		return
	}

	e.dirty.Store(true)

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// saveLoop writes changed states once saveDelay has passed since the first
// unsaved change, and a last time when the engine stops.
func (e *Engine) saveLoop() {
	defer close(e.saverDone)

	for {
		select {
		case <-e.stop:
			e.save()

			return
		case <-e.wake:
		}

		delay := time.NewTimer(e.saveDelay)

		select {
		case <-e.stop:
			delay.Stop()
			e.save()

			return
		case <-delay.C:
		}

		e.save()
	}
}

// save writes every item state when some changed since the last save.
// Changes made while it runs are left for the next one.
func (e *Engine) save() {
	if !e.dirty.Swap(false) {
		return
	}

	entries := e.snapshot()
	if entries == nil {
		return
	}

	if err := e.repo.Save(e.ctx, entries); err != nil {
		e.dirty.Store(true)
		logger.ErrorKV(e.ctx, "failed to persist alarm states", "error", err)
	}
}

func (e *Engine) snapshot() map[string]state.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.root == nil {
		return nil
	}

	entries := make(map[string]state.Entry)
	e.root.Walk(func(item *tree.Item) {
		entries[item.PathName()] = state.Entry{
			State:   item.State(),
			Current: item.CurrentState(),
		}
	})

	return entries
}
