package infopv

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/tree"
)

// TestSummary covers the empty, single and truncated forms.
func TestSummary(t *testing.T) {
	t.Parallel()

	root := tree.New(nil, "Area")
	require.Equal(t, "No active alarms", Summary(root, 0))

	for i := range 4 {
		leaf := tree.New(root, fmt.Sprintf("pv%d", i), tree.AsLeaf(),
			tree.WithState(alarm.NewState(alarm.Major, "", "", time.Now())))
		require.NoError(t, leaf.AddToParent(root))
	}

	require.Equal(t, "4 active alarms:\nMAJOR - pv0\nMAJOR - pv1\n... (2 more)", Summary(root, 2))
}
