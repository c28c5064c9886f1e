package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMakePath covers root paths, nesting and escaping of separators.
func TestMakePath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/Accelerator", MakePath("", "Accelerator"))
	require.Equal(t, "/Accelerator/Vacuum", MakePath("/Accelerator", "Vacuum"))
	require.Equal(t, `/Accelerator/ion\/pump`, MakePath("/Accelerator", "ion/pump"))
}

// TestSplitPath verifies SplitPath reverses MakePath.
func TestSplitPath(t *testing.T) {
	t.Parallel()

	path := MakePath(MakePath(MakePath("", "Accelerator"), "ion/pump"), "PV:1")
	require.Equal(t, []string{"Accelerator", "ion/pump", "PV:1"}, SplitPath(path))
	require.Empty(t, SplitPath("/"))
	require.Equal(t, []string{"a", "b"}, SplitPath("//a//b/"))
}
