package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSeverityParseAndString verifies the nine wire names round trip.
func TestSeverityParseAndString(t *testing.T) {
	t.Parallel()

	require.Len(t, Severities(), 9)

	for _, s := range Severities() {
		parsed, err := ParseSeverity(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	parsed, err := ParseSeverity(" major_ack ")
	require.NoError(t, err)
	require.Equal(t, MajorAck, parsed)

	_, err = ParseSeverity("CRITICAL")
	require.ErrorIs(t, err, ErrUnknownSeverity)
}

// TestSeverityIsActive checks that only un-acknowledged alarms are active.
func TestSeverityIsActive(t *testing.T) {
	t.Parallel()

	active := map[Severity]bool{
		OK:           false,
		MinorAck:     false,
		MajorAck:     false,
		InvalidAck:   false,
		UndefinedAck: false,
		Minor:        true,
		Major:        true,
		Invalid:      true,
		Undefined:    true,
	}
	for s, want := range active {
		require.Equal(t, want, s.IsActive(), s.String())
	}
}

// TestSeverityOrderingsDiffer documents that the ordinal and the update
// priority are two distinct orderings.
func TestSeverityOrderingsDiffer(t *testing.T) {
	t.Parallel()

	// By ordinal every acknowledged level is below every active one.
	require.Less(t, UndefinedAck, Minor)
	// By urgency an acknowledged MAJOR outranks an active MINOR.
	require.Greater(t, MajorAck.AlarmUpdatePriority(), Minor.AlarmUpdatePriority())

	prev := -1
	for _, s := range []Severity{OK, MinorAck, Minor, MajorAck, Major, InvalidAck, Invalid, UndefinedAck, Undefined} {
		require.Greater(t, s.AlarmUpdatePriority(), prev, s.String())
		prev = s.AlarmUpdatePriority()
	}
}

// TestSeverityAckMapping checks the acknowledge mapping and its inverse.
func TestSeverityAckMapping(t *testing.T) {
	t.Parallel()

	require.Equal(t, OK, OK.Acknowledged())
	require.Equal(t, OK, OK.Unacknowledged())

	for _, s := range []Severity{Minor, Major, Invalid, Undefined} {
		require.NotEqual(t, s, s.Acknowledged())
		require.Equal(t, s, s.Acknowledged().Unacknowledged())
		require.Equal(t, s.Acknowledged(), s.Acknowledged().Acknowledged())
	}
}

// TestSeverityText covers the TextMarshaler implementation used by YAML.
func TestSeverityText(t *testing.T) {
	t.Parallel()

	text, err := Invalid.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "INVALID", string(text))

	var s Severity
	require.NoError(t, s.UnmarshalText([]byte("UNDEFINED_ACK")))
	require.Equal(t, UndefinedAck, s)

	require.Error(t, s.UnmarshalText([]byte("bogus")))

	_, err = Severity(42).MarshalText()
	require.Error(t, err)
	require.False(t, Severity(42).IsActive())
}
