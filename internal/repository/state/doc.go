// Package state persists the last-known alarm states of the tree leaves.
//
// The FileRepository stores them as JSON on disk, keyed by item path, and
// exposes a Repository interface that the engine depends on.
package state
