// Package engine owns the alarm tree. It applies configuration, receives
// alarm states, handles acknowledgement, drives the automated actions of
// every item and persists the leaf states.
package engine
