// Package codec encodes alarm states as google.protobuf.Struct values.
//
// The same field names are used on the wire and in the state file.
package codec
