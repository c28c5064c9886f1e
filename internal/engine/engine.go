package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/alarm-engine/internal/action"
	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/logger"
	"github.com/oshokin/alarm-engine/internal/metrics"
	"github.com/oshokin/alarm-engine/internal/repository/state"
	"github.com/oshokin/alarm-engine/internal/tree"
)

var (
	// ErrNotFound is returned for a path that names no item.
	ErrNotFound = errors.New("alarm item not found")
	// ErrInvalidPath is returned for a path outside the tree or through a leaf.
	ErrInvalidPath = errors.New("invalid alarm path")
	// ErrNotLoaded is returned before Load.
	ErrNotLoaded = errors.New("alarm tree is not loaded")
	// ErrAlreadyLoaded is returned by a second Load.
	ErrAlreadyLoaded = errors.New("alarm tree is already loaded")
)

const (
	// DisabledMessage is the message of the OK state shown by a disabled item.
	DisabledMessage = "Disabled"
	// DefaultSaveDelay is used when Options.SaveDelay is not positive.
	DefaultSaveDelay = 200 * time.Millisecond
)

// Options configure an Engine.
type Options struct {
	// Repository persists leaf states. Nil keeps them in memory only.
	Repository state.Repository
	// SaveDelay collects state changes into one save.
	SaveDelay time.Duration
	// Executor performs actions.
	Executor *action.Executor
	// Workers is the size of the shared action worker pool.
	Workers int
	// Followup lists detail prefixes of actions repeated when an alarm clears.
	Followup []string
}

// Engine is the alarm state and action engine.
type Engine struct {
	ctx      context.Context //nolint:containedctx // Action controllers inherit it.
	repo     state.Repository
	executor *action.Executor
	timer    *action.Timer
	slotOpts action.Options

	// mu guards the tree structure, slots and restored. State updates
	// take it shared.
	mu       sync.RWMutex
	root     *tree.Item
	slots    map[string]*action.Slot
	restored map[string]state.Entry

	saveDelay time.Duration
	dirty     atomic.Bool
	wake      chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	saverDone chan struct{}
}

// New creates an engine with its shared action timer.
func New(ctx context.Context, opts Options) *Engine {
	ctx = logger.WithName(ctx, "engine")

	executor := opts.Executor
	if executor == nil {
		executor = action.NewExecutor(nil, nil, nil)
	}

	timer := action.NewTimer(ctx, opts.Workers)

	saveDelay := opts.SaveDelay
	if saveDelay <= 0 {
		saveDelay = DefaultSaveDelay
	}

	e := &Engine{
		ctx:      ctx,
		repo:     opts.Repository,
		executor: executor,
		timer:    timer,
		slotOpts: action.Options{
			Timer:      timer,
			Dispatcher: executor,
			Followup:   opts.Followup,
		},
		slots:     make(map[string]*action.Slot),
		restored:  make(map[string]state.Entry),
		saveDelay: saveDelay,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		saverDone: make(chan struct{}),
	}

	if e.repo == nil {
		close(e.saverDone)
	} else {
		go e.saveLoop()
	}

	return e
}

// Load builds the tree from its configuration and restores persisted states.
func (e *Engine) Load(ctx context.Context, root *config.TreeNode) error {
	if err := config.ValidateTree(root); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.root != nil {
		return ErrAlreadyLoaded
	}

	if e.repo != nil {
		restored, err := e.repo.Load(ctx)

		switch {
		case errors.Is(err, state.ErrNotFound):
			logger.Info(ctx, "No persisted alarm states, starting clean")
		case err != nil:
			return fmt.Errorf("load alarm states: %w", err)
		default:
			e.restored = restored
		}
	}

	e.root = e.build(nil, root)
	e.root.Walk(e.configureSlot)

	logger.InfoKV(ctx, "alarm tree loaded", "root", e.root.PathName(), "leaves", len(e.root.Leaves()))

	return nil
}

// Root returns the tree root, nil before Load.
func (e *Engine) Root() *tree.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.root
}

// Find returns the item at path or nil.
func (e *Engine) Find(path string) *tree.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	item, _ := e.find(path)

	return item
}

// State returns the alarm state of the item at path.
func (e *Engine) State(path string) (alarm.State, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	item, err := e.find(path)
	if err != nil {
		return alarm.State{}, err
	}

	return item.State(), nil
}

// CurrentState returns the last state received from the source of the
// item at path.
func (e *Engine) CurrentState(path string) (alarm.State, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	item, err := e.find(path)
	if err != nil {
		return alarm.State{}, err
	}

	return item.CurrentState(), nil
}

// SetNotifyDisabled suppresses or resumes email actions.
func (e *Engine) SetNotifyDisabled(disabled bool) {
	e.executor.SetNotifyDisabled(disabled)
	logger.InfoKV(e.ctx, "email notifications toggled", "disabled", disabled)
}

// NotifyDisabled reports whether email actions are suppressed.
func (e *Engine) NotifyDisabled() bool {
	return e.executor.NotifyDisabled()
}

// Close cancels every action controller, saves pending state changes and
// stops the timer.
func (e *Engine) Close() {
	e.mu.Lock()
	for path, slot := range e.slots {
		slot.Cancel()
		delete(e.slots, path)
	}
	e.mu.Unlock()

	e.stopOnce.Do(func() { close(e.stop) })
	<-e.saverDone

	e.timer.Close()
}

// find must be called with mu held.
func (e *Engine) find(path string) (*tree.Item, error) {
	if e.root == nil {
		return nil, ErrNotLoaded
	}

	elements := tree.SplitPath(path)
	if len(elements) == 0 || elements[0] != e.root.Name() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	item := e.root
	for _, name := range elements[1:] {
		item = item.Child(name)
		if item == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
	}

	return item, nil
}

// build creates the item for node and its subtree. Children are attached
// once complete; the returned item is not attached.
func (e *Engine) build(parent *tree.Item, node *config.TreeNode) *tree.Item {
	var opts []tree.Option
	if node.PV {
		opts = append(opts, tree.AsLeaf())
	}

	path := tree.MakePath(pathOf(parent), node.Name)
	if entry, ok := e.restored[path]; ok {
		opts = append(opts, tree.WithState(entry.State))
	}

	item := tree.New(parent, node.Name, opts...)
	if entry, ok := e.restored[path]; ok {
		item.SetCurrentState(entry.Current)
	}

	apply(item, node)

	if !item.IsEnabled() {
		item.SetState(enablementState(item))
	}

	for _, child := range node.Children {
		if err := e.build(item, child).AddToParent(item); err != nil {
			// ValidateTree rejects duplicate siblings.
			panic(fmt.Errorf("%w: %w", tree.ErrCorrupted, err))
		}
	}

	return item
}

// configureSlot must be called with mu held.
func (e *Engine) configureSlot(item *tree.Item) {
	slot, ok := e.slots[item.PathName()]
	if !ok {
		slot = action.NewSlot(e.slotOpts)
		e.slots[item.PathName()] = slot
	}

	slot.Configure(e.ctx, item, item.State().Severity, item.IsEnabled(), item.Actions())
}

// apply copies node settings to item and reports whether enablement or
// actions changed, which requires a new action controller.
func apply(item *tree.Item, node *config.TreeNode) (changed, actionsChanged bool) {
	changed = item.SetDescription(node.Description)
	changed = item.SetGuidance(node.Guidance) || changed
	changed = item.SetDisplays(node.Displays) || changed
	changed = item.SetCommands(node.Commands) || changed

	actionsChanged = item.SetEnabled(node.IsEnabled())
	actionsChanged = item.SetActions(node.Actions) || actionsChanged

	return changed || actionsChanged, actionsChanged
}

func pathOf(item *tree.Item) string {
	if item == nil {
		return ""
	}

	return item.PathName()
}

// recordChange applies the effects of a changed item state.
func (e *Engine) recordChange(item *tree.Item, severity alarm.Severity) {
	metrics.RecordStateUpdate(severity.String())

	if slot, ok := e.slots[item.PathName()]; ok {
		slot.Update(severity)
	}
}
