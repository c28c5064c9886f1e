package tree

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

var (
	// ErrCorrupted reports a parent that does not list its own child.
	// It is raised through panic since the tree can no longer be trusted.
	ErrCorrupted = errors.New("alarm tree corrupted")
	// ErrAttached is returned when an item already has a parent.
	ErrAttached = errors.New("item is already attached")
	// ErrDuplicateChild is returned when the parent already has a child of that name.
	ErrDuplicateChild = errors.New("duplicate child name")
	// ErrWrongParent is returned when an item is attached to a parent other
	// than the one it was built for.
	ErrWrongParent = errors.New("item was built for a different parent")
	// errNoParent is returned when attaching to a nil parent.
	errNoParent = errors.New("parent is required")
)

// Item is a node of the alarm tree.
type Item struct {
	// name is the immutable item name, unique among siblings.
	name string
	// pathName is the full path, computed once at construction.
	pathName string
	// leaf marks items that represent an alarm source rather than a container.
	leaf bool

	// parent is a non-owning back reference, nil for the root and detached items.
	parent atomic.Pointer[Item]

	// mu serializes writers of children. Readers load the snapshot.
	mu sync.Mutex
	// children is sorted by name and replaced on every change.
	children atomic.Pointer[[]*Item]

	// state is the alarm state shown for the item.
	state atomic.Pointer[alarm.State]
	// current is the latest state received from the source, leaves only.
	current atomic.Pointer[alarm.State]

	guidance    atomic.Pointer[[]alarm.TitleDetail]
	displays    atomic.Pointer[[]alarm.TitleDetail]
	commands    atomic.Pointer[[]alarm.TitleDetail]
	actions     atomic.Pointer[[]alarm.TitleDetailDelay]
	description atomic.Pointer[string]
	enabled     atomic.Bool
}

// Option configures an item under construction.
type Option func(*Item)

// AsLeaf marks the item as an alarm source.
func AsLeaf() Option {
	return func(i *Item) {
		i.leaf = true
	}
}

// WithState sets the initial alarm state and, for leaves, the current state.
func WithState(state alarm.State) Option {
	return func(i *Item) {
		i.state.Store(&state)
		i.current.Store(&state)
	}
}

// New builds an unattached item whose path is derived from parent.
// A nil parent builds a root. Call AddToParent once the item is complete.
func New(parent *Item, name string, opts ...Option) *Item {
	parentPath := ""
	if parent != nil {
		parentPath = parent.pathName
	}

	item := &Item{
		name:     name,
		pathName: MakePath(parentPath, name),
	}

	initial := alarm.ClearState("", time.Now())
	item.state.Store(&initial)
	item.current.Store(&initial)
	item.enabled.Store(true)

	for _, opt := range opts {
		opt(item)
	}

	return item
}

// Name returns the item name.
func (i *Item) Name() string {
	return i.name
}

// PathName returns the full path of the item.
func (i *Item) PathName() string {
	return i.pathName
}

// IsLeaf reports whether the item represents an alarm source.
func (i *Item) IsLeaf() bool {
	return i.leaf
}

// Parent returns the parent or nil.
func (i *Item) Parent() *Item {
	return i.parent.Load()
}

// AddToParent inserts the item into the parent's child list, keeping the
// list ordered by name. It must be called once the item is fully built.
func (i *Item) AddToParent(parent *Item) error {
	if parent == nil {
		return errNoParent
	}

	if MakePath(parent.pathName, i.name) != i.pathName {
		return fmt.Errorf("%w: %s under %s", ErrWrongParent, i.pathName, parent.pathName)
	}

	if !i.parent.CompareAndSwap(nil, parent) {
		return fmt.Errorf("%w: %s", ErrAttached, i.pathName)
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	old := parent.Children()

	index, found := slices.BinarySearchFunc(old, i.name, compareName)
	if found {
		i.parent.Store(nil)

		return fmt.Errorf("%w: %s", ErrDuplicateChild, i.pathName)
	}

	updated := make([]*Item, 0, len(old)+1)
	updated = append(updated, old[:index]...)
	updated = append(updated, i)
	updated = append(updated, old[index:]...)
	parent.children.Store(&updated)

	return nil
}

// DetachFromParent clears the parent reference and removes the item from
// the parent's child list. Detaching a root or detached item does nothing.
//
// It panics with ErrCorrupted when the parent does not list the item.
func (i *Item) DetachFromParent() {
	parent := i.parent.Swap(nil)
	if parent == nil {
		return
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	old := parent.Children()

	index := slices.Index(old, i)
	if index < 0 {
		panic(fmt.Errorf("%w: %s is not a child of %s", ErrCorrupted, i.pathName, parent.pathName))
	}

	updated := slices.Delete(slices.Clone(old), index, index+1)
	parent.children.Store(&updated)
}

// Children returns the current child snapshot in name order.
// The slice is shared and must not be modified.
func (i *Item) Children() []*Item {
	if list := i.children.Load(); list != nil {
		return *list
	}

	return nil
}

// Child returns the child with the given name or nil.
func (i *Item) Child(name string) *Item {
	children := i.Children()

	index, found := slices.BinarySearchFunc(children, name, compareName)
	if !found {
		return nil
	}

	return children[index]
}

// Leaves returns all leaf items at or below i, in tree order.
func (i *Item) Leaves() []*Item {
	if i.leaf {
		return []*Item{i}
	}

	var leaves []*Item
	for _, child := range i.Children() {
		leaves = append(leaves, child.Leaves()...)
	}

	return leaves
}

// ActiveLeaves returns the leaves at or below i whose alarm is active.
func (i *Item) ActiveLeaves() []*Item {
	var active []*Item

	for _, leaf := range i.Leaves() {
		if leaf.State().Severity.IsActive() {
			active = append(active, leaf)
		}
	}

	return active
}

// Walk calls fn for i and every item below it, parents first.
func (i *Item) Walk(fn func(*Item)) {
	fn(i)

	for _, child := range i.Children() {
		child.Walk(fn)
	}
}

// State returns the alarm state of the item.
func (i *Item) State() alarm.State {
	return *i.state.Load()
}

// SetState replaces the alarm state. It returns false, leaving the item
// untouched, when the new state equals the old one.
func (i *Item) SetState(state alarm.State) bool {
	return swapState(&i.state, state)
}

// CurrentState returns the latest state received from the source.
func (i *Item) CurrentState() alarm.State {
	return *i.current.Load()
}

// SetCurrentState replaces the current state and reports a change.
func (i *Item) SetCurrentState(state alarm.State) bool {
	return swapState(&i.current, state)
}

// Description returns the leaf description, the name when unset.
func (i *Item) Description() string {
	if d := i.description.Load(); d != nil && *d != "" {
		return *d
	}

	return i.name
}

// SetDescription sets the description and reports a change.
func (i *Item) SetDescription(description string) bool {
	for {
		old := i.description.Load()
		if old != nil && *old == description {
			return false
		}

		if old == nil && description == "" {
			return false
		}

		if i.description.CompareAndSwap(old, &description) {
			return true
		}
	}
}

// IsEnabled reports whether alarms of the item are enabled.
func (i *Item) IsEnabled() bool {
	return i.enabled.Load()
}

// SetEnabled enables or disables the item and reports a change.
func (i *Item) SetEnabled(enabled bool) bool {
	return i.enabled.CompareAndSwap(!enabled, enabled)
}

// Guidance returns the guidance entries.
func (i *Item) Guidance() []alarm.TitleDetail {
	return loadList(&i.guidance)
}

// SetGuidance replaces the guidance entries and reports a change.
func (i *Item) SetGuidance(guidance []alarm.TitleDetail) bool {
	return storeList(&i.guidance, guidance)
}

// Displays returns the related display links.
func (i *Item) Displays() []alarm.TitleDetail {
	return loadList(&i.displays)
}

// SetDisplays replaces the related display links and reports a change.
func (i *Item) SetDisplays(displays []alarm.TitleDetail) bool {
	return storeList(&i.displays, displays)
}

// Commands returns the operator commands.
func (i *Item) Commands() []alarm.TitleDetail {
	return loadList(&i.commands)
}

// SetCommands replaces the operator commands and reports a change.
func (i *Item) SetCommands(commands []alarm.TitleDetail) bool {
	return storeList(&i.commands, commands)
}

// Actions returns the automated actions.
func (i *Item) Actions() []alarm.TitleDetailDelay {
	return loadList(&i.actions)
}

// SetActions replaces the automated actions and reports a change.
func (i *Item) SetActions(actions []alarm.TitleDetailDelay) bool {
	return storeList(&i.actions, actions)
}

// String returns the path name.
func (i *Item) String() string {
	return i.pathName
}

func compareName(child *Item, name string) int {
	return strings.Compare(child.name, name)
}

func swapState(p *atomic.Pointer[alarm.State], state alarm.State) bool {
	for {
		old := p.Load()
		if old != nil && old.Equal(state) {
			return false
		}

		if p.CompareAndSwap(old, &state) {
			return true
		}
	}
}

func loadList[T any](p *atomic.Pointer[[]T]) []T {
	if list := p.Load(); list != nil {
		return *list
	}

	return nil
}

// storeList installs a copy of list unless it equals the stored one.
func storeList[T comparable](p *atomic.Pointer[[]T], list []T) bool {
	for {
		old := p.Load()

		var current []T
		if old != nil {
			current = *old
		}

		if slices.Equal(current, list) {
			return false
		}

		replacement := slices.Clone(list)
		if p.CompareAndSwap(old, &replacement) {
			return true
		}
	}
}
