package alarm

import (
	"fmt"
	"time"
)

// Actor identifies who acknowledged or changed an alarm.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string
	// Username is the system user who triggered the action.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as user@host.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return a.Username + "@" + a.Hostname
}

// State is the alarm state of a tree item at a point in time.
//
// State is a value: transitions return a new State and never modify
// the receiver.
type State struct {
	// Severity is the alarm severity.
	Severity Severity
	// Message describes the alarm, never nil but may be empty.
	Message string
	// Value is the textual value that caused the alarm, empty when unknown.
	Value string
	// Time is when the state was received.
	Time time.Time
	// Latch marks the sample at which the item first reached this severity.
	Latch bool
}

// NewState creates an un-latched state. A zero time is replaced by now.
func NewState(severity Severity, message, value string, at time.Time) State {
	if at.IsZero() {
		at = time.Now()
	}

	return State{
		Severity: severity,
		Message:  message,
		Value:    value,
		Time:     at,
	}
}

// ClearState returns an OK state carrying the given value and time.
func ClearState(value string, at time.Time) State {
	return NewState(OK, "", value, at)
}

// IsLatched reports whether the state marks a newly latched severity.
func (s State) IsLatched() bool {
	return s.Latch
}

// Equal reports structural equality. Times are compared as instants.
func (s State) Equal(other State) bool {
	return s.Severity == other.Severity &&
		s.Message == other.Message &&
		s.Value == other.Value &&
		s.Latch == other.Latch &&
		s.Time.Equal(other.Time)
}

// UpdatedSeverity returns a copy with the severity replaced.
func (s State) UpdatedSeverity(severity Severity) State {
	s.Severity = severity

	return s
}

// Acknowledged returns the acknowledged form of the state.
//
// When current is set and ranks below this state by ordinal, the alarm
// has since dropped, so current is acknowledged instead. This way an
// acknowledgement always targets what is displayed, not a stale level.
func (s State) Acknowledged(current *State) State {
	if current != nil && current.Severity < s.Severity {
		return current.UpdatedSeverity(current.Severity.Acknowledged())
	}

	return s.UpdatedSeverity(s.Severity.Acknowledged())
}

// Unacknowledged maps an acknowledged severity back to its active form.
func (s State) Unacknowledged() State {
	return s.UpdatedSeverity(s.Severity.Unacknowledged())
}

// HasHigherUpdatePriority reports whether s should replace other when both
// arrive concurrently.
func (s State) HasHigherUpdatePriority(other State) bool {
	return s.Severity.AlarmUpdatePriority() > other.Severity.AlarmUpdatePriority()
}

// String renders the state for logs.
func (s State) String() string {
	latch := ""
	if s.Latch {
		latch = " (latched)"
	}

	return fmt.Sprintf("%s/%s [%s] %s%s", s.Severity, s.Message, s.Value, s.Time.Format(time.RFC3339), latch)
}
