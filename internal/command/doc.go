// Package command starts the external processes of cmd actions.
package command
