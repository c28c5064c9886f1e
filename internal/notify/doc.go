// Package notify sends alarm emails for mailto actions.
package notify
