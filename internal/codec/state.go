package codec

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

// Field names.
const (
	FieldPath            = "path"
	FieldSeverity        = "severity"
	FieldMessage         = "message"
	FieldValue           = "value"
	FieldTime            = "time"
	FieldLatch           = "latch"
	FieldCurrentSeverity = "current_severity"
	FieldCurrentMessage  = "current_message"
	FieldCurrentValue    = "current_value"
	FieldCurrentTime     = "current_time"
	FieldCurrentLatch    = "current_latch"
	FieldAcknowledge     = "acknowledge"
	FieldUser            = "user"
	FieldHost            = "host"
	FieldDisabled        = "disabled"
	FieldChanged         = "changed"
)

// ErrMissingField is returned when a required field is absent.
var ErrMissingField = errors.New("missing field")

// PutState stores s under the plain state field names.
func PutState(fields map[string]*structpb.Value, s alarm.State) {
	fields[FieldSeverity] = structpb.NewStringValue(s.Severity.String())
	fields[FieldMessage] = structpb.NewStringValue(s.Message)
	fields[FieldValue] = structpb.NewStringValue(s.Value)
	fields[FieldTime] = structpb.NewStringValue(s.Time.UTC().Format(time.RFC3339Nano))
	fields[FieldLatch] = structpb.NewBoolValue(s.Latch)
}

// PutCurrent stores s under the current_ field names.
func PutCurrent(fields map[string]*structpb.Value, s alarm.State) {
	fields[FieldCurrentSeverity] = structpb.NewStringValue(s.Severity.String())
	fields[FieldCurrentMessage] = structpb.NewStringValue(s.Message)
	fields[FieldCurrentValue] = structpb.NewStringValue(s.Value)
	fields[FieldCurrentTime] = structpb.NewStringValue(s.Time.UTC().Format(time.RFC3339Nano))
	fields[FieldCurrentLatch] = structpb.NewBoolValue(s.Latch)
}

// State reads the plain state fields. Severity is required; a missing time
// means now.
func State(st *structpb.Struct) (alarm.State, error) {
	severity, ok := String(st, FieldSeverity)
	if !ok {
		return alarm.State{}, fmt.Errorf("%w: %s", ErrMissingField, FieldSeverity)
	}

	return decode(st, severity, FieldMessage, FieldValue, FieldTime, FieldLatch)
}

// Current reads the current_ fields. It reports false when they are absent.
func Current(st *structpb.Struct) (alarm.State, bool, error) {
	severity, ok := String(st, FieldCurrentSeverity)
	if !ok {
		return alarm.State{}, false, nil
	}

	s, err := decode(st, severity, FieldCurrentMessage, FieldCurrentValue, FieldCurrentTime, FieldCurrentLatch)

	return s, err == nil, err
}

// String returns a string field.
func String(st *structpb.Struct, name string) (string, bool) {
	v, ok := st.GetFields()[name]
	if !ok {
		return "", false
	}

	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}

	return s.StringValue, true
}

// Bool returns a bool field, false when absent.
func Bool(st *structpb.Struct, name string) bool {
	return st.GetFields()[name].GetBoolValue()
}

func decode(st *structpb.Struct, severityName, messageField, valueField, timeField, latchField string) (alarm.State, error) {
	severity, err := alarm.ParseSeverity(severityName)
	if err != nil {
		return alarm.State{}, err
	}

	message, _ := String(st, messageField)
	value, _ := String(st, valueField)

	var at time.Time
	if raw, ok := String(st, timeField); ok && raw != "" {
		at, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return alarm.State{}, fmt.Errorf("parse %s: %w", timeField, err)
		}
	}

	state := alarm.NewState(severity, message, value, at)
	state.Latch = Bool(st, latchField)

	return state, nil
}
