package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

// TestStateFields stores and reads both the alarm and current states.
func TestStateFields(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	want := alarm.State{Severity: alarm.MajorAck, Message: "HIHI", Value: "12", Time: at, Latch: true}
	current := alarm.NewState(alarm.Minor, "HIGH", "8", at.Add(time.Second))
	current.Latch = true

	fields := map[string]*structpb.Value{}
	PutState(fields, want)
	PutCurrent(fields, current)

	st := &structpb.Struct{Fields: fields}

	got, err := State(st)
	require.NoError(t, err)
	require.True(t, want.Equal(got), "got %s", got)

	gotCurrent, ok, err := Current(st)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, current.Equal(gotCurrent), "got %s", gotCurrent)
	require.True(t, gotCurrent.IsLatched())

	delete(fields, FieldCurrentLatch)

	gotCurrent, ok, err = Current(st)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, gotCurrent.IsLatched(), "files without the field stay un-latched")
}

// TestStateErrors rejects missing or malformed fields.
func TestStateErrors(t *testing.T) {
	t.Parallel()

	_, err := State(&structpb.Struct{})
	require.ErrorIs(t, err, ErrMissingField)

	_, err = State(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSeverity: structpb.NewStringValue("LOUD"),
	}})
	require.ErrorIs(t, err, alarm.ErrUnknownSeverity)

	_, err = State(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSeverity: structpb.NewStringValue("MINOR"),
		FieldTime:     structpb.NewStringValue("yesterday"),
	}})
	require.Error(t, err)

	_, ok, err := Current(&structpb.Struct{})
	require.NoError(t, err)
	require.False(t, ok)

	s, err := State(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSeverity: structpb.NewStringValue("minor"),
	}})
	require.NoError(t, err)
	require.Equal(t, alarm.Minor, s.Severity)
	require.False(t, s.Time.IsZero())
}
