package alarm

import (
	"errors"
	"fmt"
	"strings"
)

// Severity is a point on the alarm severity scale.
//
// Values are ordered by their ordinal: every acknowledged level ranks below
// every active level, so an un-acknowledged alarm always dominates.
// Use AlarmUpdatePriority for the operator-urgency ranking instead.
type Severity int8

// Severity levels in ordinal order.
const (
	// OK means no alarm.
	OK Severity = iota
	// MinorAck is an acknowledged MINOR alarm.
	MinorAck
	// MajorAck is an acknowledged MAJOR alarm.
	MajorAck
	// InvalidAck is an acknowledged INVALID alarm.
	InvalidAck
	// UndefinedAck is an acknowledged UNDEFINED alarm.
	UndefinedAck
	// Minor is an active minor alarm.
	Minor
	// Major is an active major alarm.
	Major
	// Invalid is an active alarm for an invalid value.
	Invalid
	// Undefined is an active alarm for a disconnected or unknown value.
	Undefined
)

// ErrUnknownSeverity is returned when a severity name cannot be parsed.
var ErrUnknownSeverity = errors.New("unknown severity")

// severityNames holds the wire names indexed by ordinal.
//
//nolint:gochecknoglobals // Fixed lookup table.
var severityNames = [...]string{
	OK:           "OK",
	MinorAck:     "MINOR_ACK",
	MajorAck:     "MAJOR_ACK",
	InvalidAck:   "INVALID_ACK",
	UndefinedAck: "UNDEFINED_ACK",
	Minor:        "MINOR",
	Major:        "MAJOR",
	Invalid:      "INVALID",
	Undefined:    "UNDEFINED",
}

// updatePriorities ranks severities by urgency, indexed by ordinal.
//
//nolint:gochecknoglobals // Fixed lookup table.
var updatePriorities = [...]int{
	OK:           0,
	MinorAck:     1,
	Minor:        2,
	MajorAck:     3,
	Major:        4,
	InvalidAck:   5,
	Invalid:      6,
	UndefinedAck: 7,
	Undefined:    8,
}

// Severities returns all levels in ordinal order.
func Severities() []Severity {
	return []Severity{OK, MinorAck, MajorAck, InvalidAck, UndefinedAck, Minor, Major, Invalid, Undefined}
}

// ParseSeverity converts a wire name such as "MAJOR_ACK" into a Severity.
func ParseSeverity(s string) (Severity, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, candidate := range severityNames {
		if candidate == name {
			return Severity(i), nil
		}
	}

	return OK, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
}

// IsValid reports whether s is one of the nine known levels.
func (s Severity) IsValid() bool {
	return s >= OK && s <= Undefined
}

// String returns the wire name.
func (s Severity) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("Severity(%d)", int8(s))
	}

	return severityNames[s]
}

// IsActive reports whether the level is an un-acknowledged alarm.
func (s Severity) IsActive() bool {
	return s >= Minor && s <= Undefined
}

// AlarmUpdatePriority ranks the level by urgency.
// MINOR_ACK < MINOR < MAJOR_ACK < MAJOR and so on.
func (s Severity) AlarmUpdatePriority() int {
	if !s.IsValid() {
		return -1
	}

	return updatePriorities[s]
}

// Acknowledged maps an active level to its acknowledged counterpart.
// OK and already acknowledged levels are returned unchanged.
func (s Severity) Acknowledged() Severity {
	switch s {
	case Undefined:
		return UndefinedAck
	case Invalid:
		return InvalidAck
	case Major:
		return MajorAck
	case Minor:
		return MinorAck
	default:
		return s
	}
}

// Unacknowledged maps an acknowledged level back to its active counterpart.
func (s Severity) Unacknowledged() Severity {
	switch s {
	case UndefinedAck:
		return Undefined
	case InvalidAck:
		return Invalid
	case MajorAck:
		return Major
	case MinorAck:
		return Minor
	default:
		return s
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int8(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
