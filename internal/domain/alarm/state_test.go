package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestActorClone verifies that Clone returns a deep copy and handles nil safely.
func TestActorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Actor)(nil).Clone())

	a := &Actor{
		Hostname: "control-room-3",
		Username: "operator",
	}

	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)
	require.Equal(t, "operator@control-room-3", b.String())
}

// TestStateAckUnackRoundTrip checks that acknowledging and un-acknowledging
// every active level restores it and keeps the remaining fields.
func TestStateAckUnackRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, severity := range []Severity{Minor, Major, Invalid, Undefined} {
		original := State{
			Severity: severity,
			Message:  "HIHI",
			Value:    "42.0",
			Time:     ts,
			Latch:    true,
		}

		acked := original.Acknowledged(nil)
		require.False(t, acked.Severity.IsActive(), severity.String())
		require.Equal(t, severity.Acknowledged(), acked.Severity)

		restored := acked.Unacknowledged()
		require.True(t, original.Equal(restored), severity.String())
	}
}

// TestStateAcknowledgeOK ensures acknowledging OK or an acked level is a no-op.
func TestStateAcknowledgeOK(t *testing.T) {
	t.Parallel()

	ok := NewState(OK, "", "1", time.Now())
	require.True(t, ok.Equal(ok.Acknowledged(nil)))

	acked := NewState(MajorAck, "LOLO", "1", time.Now())
	require.True(t, acked.Equal(acked.Acknowledged(nil)))
	require.True(t, ok.Equal(ok.Unacknowledged()))
}

// TestStateAcknowledgeTargetsLowerCurrent verifies that a latched alarm that
// has since dropped is acknowledged at the current, lower level.
func TestStateAcknowledgeTargetsLowerCurrent(t *testing.T) {
	t.Parallel()

	latched := NewState(Major, "HIHI", "10", time.Unix(100, 0))
	current := NewState(Minor, "HIGH", "5", time.Unix(200, 0))

	acked := latched.Acknowledged(&current)
	require.Equal(t, MinorAck, acked.Severity)
	require.Equal(t, "HIGH", acked.Message)
	require.Equal(t, "5", acked.Value)

	// Current at a higher level leaves the alarm state as the target.
	higher := NewState(Invalid, "INVALID", "", time.Unix(300, 0))
	acked = latched.Acknowledged(&higher)
	require.Equal(t, MajorAck, acked.Severity)
	require.Equal(t, "HIHI", acked.Message)
}

// TestStateUpdatedSeverityKeepsFields checks that only the severity changes.
func TestStateUpdatedSeverityKeepsFields(t *testing.T) {
	t.Parallel()

	s := State{Severity: Minor, Message: "HIGH", Value: "3", Time: time.Unix(5, 0), Latch: true}
	u := s.UpdatedSeverity(Invalid)

	require.Equal(t, Invalid, u.Severity)
	require.Equal(t, Minor, s.Severity)
	require.Equal(t, s.Message, u.Message)
	require.Equal(t, s.Value, u.Value)
	require.Equal(t, s.Latch, u.Latch)
	require.True(t, s.Time.Equal(u.Time))
}

// TestStateEqual covers structural equality including time instants.
func TestStateEqual(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewState(Major, "HIHI", "1", ts)
	b := NewState(Major, "HIHI", "1", ts.In(time.FixedZone("X", 3600)))

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(b.UpdatedSeverity(Minor)))

	b.Latch = true
	require.False(t, a.Equal(b))
}

// TestNewStateDefaultsTime ensures a zero time is replaced by now.
func TestNewStateDefaultsTime(t *testing.T) {
	t.Parallel()

	s := NewState(OK, "", "", time.Time{})
	require.False(t, s.Time.IsZero())

	c := ClearState("7", time.Unix(9, 0))
	require.Equal(t, OK, c.Severity)
	require.Equal(t, "7", c.Value)
	require.Empty(t, c.Message)
}
