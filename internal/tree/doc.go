// Package tree implements the alarm tree: named items with sorted children,
// optional alarm state and per-item guidance, displays, commands and
// automated actions.
//
// Child lists and configuration lists are replaced on write, never spliced,
// so readers may walk the tree while another goroutine attaches or detaches
// items. Items are built in full by New and only afterwards made visible to
// the parent by AddToParent.
package tree
