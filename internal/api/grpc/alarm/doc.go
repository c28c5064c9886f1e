// Package alarm implements the gRPC transport for the alarm engine.
//
// Messages are google.protobuf.Struct values whose field names are defined
// by the codec package, so the service is declared without generated code.
package alarm
