package tree

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

func attach(t *testing.T, parent *Item, name string, opts ...Option) *Item {
	t.Helper()

	item := New(parent, name, opts...)
	require.NoError(t, item.AddToParent(parent))

	return item
}

func childNames(item *Item) []string {
	children := item.Children()
	names := make([]string, 0, len(children))

	for _, child := range children {
		names = append(names, child.Name())
	}

	return names
}

// TestItem_ChildrenStaySorted inserts names in random order and checks the
// sorted order and that Child agrees with a linear scan.
func TestItem_ChildrenStaySorted(t *testing.T) {
	t.Parallel()

	root := New(nil, "root")

	names := make([]string, 0, 50)
	for i := range 50 {
		names = append(names, fmt.Sprintf("pv%03d", i))
	}

	shuffled := slices.Clone(names)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	for _, name := range shuffled {
		attach(t, root, name, AsLeaf())
	}

	require.Equal(t, names, childNames(root))
	require.True(t, slices.IsSortedFunc(root.Children(), func(a, b *Item) int {
		return strings.Compare(a.Name(), b.Name())
	}))

	for _, name := range names {
		var linear *Item

		for _, child := range root.Children() {
			if child.Name() == name {
				linear = child
			}
		}

		require.Same(t, linear, root.Child(name))
		require.Same(t, root, linear.Parent())
	}

	require.Nil(t, root.Child("missing"))
}

// TestItem_AddToParentErrors covers duplicate names, double attach and a
// mismatched parent.
func TestItem_AddToParentErrors(t *testing.T) {
	t.Parallel()

	root := New(nil, "root")
	other := New(nil, "other")
	child := attach(t, root, "a")

	require.ErrorIs(t, child.AddToParent(root), ErrAttached)

	duplicate := New(root, "a")
	require.ErrorIs(t, duplicate.AddToParent(root), ErrDuplicateChild)
	require.Nil(t, duplicate.Parent())

	stray := New(root, "b")
	require.ErrorIs(t, stray.AddToParent(other), ErrWrongParent)
	require.Empty(t, other.Children())

	require.Error(t, stray.AddToParent(nil))
}

// TestItem_DetachFromParent removes a child and allows re-attaching it.
func TestItem_DetachFromParent(t *testing.T) {
	t.Parallel()

	root := New(nil, "root")
	a := attach(t, root, "a")
	attach(t, root, "b")

	snapshot := root.Children()

	a.DetachFromParent()
	require.Nil(t, a.Parent())
	require.Equal(t, []string{"b"}, childNames(root))
	require.Len(t, snapshot, 2, "earlier snapshots are not modified")

	a.DetachFromParent()
	root.DetachFromParent()

	require.NoError(t, a.AddToParent(root))
	require.Equal(t, []string{"a", "b"}, childNames(root))
}

// TestItem_DetachCorrupted verifies a parent that lost its child panics.
func TestItem_DetachCorrupted(t *testing.T) {
	t.Parallel()

	root := New(nil, "root")
	child := attach(t, root, "a")

	empty := []*Item{}
	root.children.Store(&empty)

	require.PanicsWithError(t, fmt.Sprintf("%s: /root/a is not a child of /root", ErrCorrupted), func() {
		child.DetachFromParent()
	})
}

// TestItem_ConcurrentAttach attaches from many goroutines while reading.
func TestItem_ConcurrentAttach(t *testing.T) {
	t.Parallel()

	root := New(nil, "root")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			item := New(root, fmt.Sprintf("n%02d", i))
			require.NoError(t, item.AddToParent(root))
			require.NotNil(t, root.Child(item.Name()))
		})
	}

	wg.Wait()
	require.Len(t, root.Children(), 20)
}

// TestItem_SettersReportChanges checks every setter reports only real changes.
func TestItem_SettersReportChanges(t *testing.T) {
	t.Parallel()

	item := New(nil, "pv", AsLeaf())
	require.True(t, item.IsLeaf())
	require.True(t, item.IsEnabled())
	require.Equal(t, "pv", item.Description())

	require.False(t, item.SetDescription(""))
	require.True(t, item.SetDescription("Pump pressure"))
	require.False(t, item.SetDescription("Pump pressure"))
	require.Equal(t, "Pump pressure", item.Description())

	require.False(t, item.SetEnabled(true))
	require.True(t, item.SetEnabled(false))
	require.False(t, item.IsEnabled())

	guidance := []alarm.TitleDetail{{Title: "Call", Detail: "x123"}}
	require.False(t, item.SetGuidance(nil))
	require.True(t, item.SetGuidance(guidance))
	require.False(t, item.SetGuidance([]alarm.TitleDetail{{Title: "Call", Detail: "x123"}}))
	require.Equal(t, guidance, item.Guidance())

	guidance[0].Title = "changed"
	require.Equal(t, "Call", item.Guidance()[0].Title, "setter stores a copy")

	require.True(t, item.SetDisplays([]alarm.TitleDetail{{Title: "Main", Detail: "main.bob"}}))
	require.True(t, item.SetCommands([]alarm.TitleDetail{{Title: "Restart", Detail: "restart.sh"}}))
	require.True(t, item.SetActions([]alarm.TitleDetailDelay{{Title: "Mail", Detail: "mailto:ops@site", Delay: 5}}))
	require.False(t, item.SetActions([]alarm.TitleDetailDelay{{Title: "Mail", Detail: "mailto:ops@site", Delay: 5}}))
	require.True(t, item.SetActions(nil))
	require.Empty(t, item.Actions())
}

// TestItem_SetState skips equal states.
func TestItem_SetState(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	major := alarm.NewState(alarm.Major, "high", "10", at)

	item := New(nil, "pv", AsLeaf(), WithState(alarm.ClearState("", at)))
	require.Equal(t, alarm.OK, item.State().Severity)

	require.True(t, item.SetState(major))
	require.False(t, item.SetState(major))
	require.Equal(t, major, item.State())

	require.True(t, item.SetCurrentState(major))
	require.False(t, item.SetCurrentState(major))
	require.Equal(t, major, item.CurrentState())
}

// TestItem_LeavesAndWalk checks traversal order.
func TestItem_LeavesAndWalk(t *testing.T) {
	t.Parallel()

	root := New(nil, "root")
	area := attach(t, root, "area")
	attach(t, area, "pv2", AsLeaf())
	attach(t, area, "pv1", AsLeaf())
	attach(t, root, "pv0", AsLeaf())

	var leaves []string
	for _, leaf := range root.Leaves() {
		leaves = append(leaves, leaf.PathName())
	}

	require.Equal(t, []string{"/root/area/pv1", "/root/area/pv2", "/root/pv0"}, leaves)

	var visited []string
	root.Walk(func(item *Item) { visited = append(visited, item.Name()) })
	require.Equal(t, []string{"root", "area", "pv1", "pv2", "pv0"}, visited)
}

// TestItem_ActiveLeaves filters leaves by active severity.
func TestItem_ActiveLeaves(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	root := New(nil, "root")
	attach(t, root, "a", AsLeaf(), WithState(alarm.NewState(alarm.Major, "high", "", at)))
	attach(t, root, "b", AsLeaf(), WithState(alarm.NewState(alarm.MajorAck, "high", "", at)))
	attach(t, root, "c", AsLeaf())

	active := root.ActiveLeaves()
	require.Len(t, active, 1)
	require.Equal(t, "a", active[0].Name())
}
