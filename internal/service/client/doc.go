// Package client implements the alarm-ctl operations against a running
// engine: reading and pushing states, acknowledging alarms and toggling
// email notifications.
package client
