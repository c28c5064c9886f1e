package infopv

import (
	"fmt"
	"strings"

	"github.com/oshokin/alarm-engine/internal/tree"
)

// DefaultMaxAlarms limits the alarms listed in a summary.
const DefaultMaxAlarms = 10

// Summary describes the active alarms at or below item, listing at most
// maxAlarms of them.
func Summary(item *tree.Item, maxAlarms int) string {
	if maxAlarms <= 0 {
		maxAlarms = DefaultMaxAlarms
	}

	active := item.ActiveLeaves()
	if len(active) == 0 {
		return "No active alarms"
	}

	var b strings.Builder
	if len(active) == 1 {
		b.WriteString("1 active alarm:")
	} else {
		fmt.Fprintf(&b, "%d active alarms:", len(active))
	}

	for i, leaf := range active {
		if i == maxAlarms {
			fmt.Fprintf(&b, "\n... (%d more)", len(active)-maxAlarms)

			break
		}

		state := leaf.State()
		fmt.Fprintf(&b, "\n%s - %s", state.Severity, leaf.Description())

		if state.Message != "" {
			b.WriteString(": " + state.Message)
		}
	}

	return b.String()
}
