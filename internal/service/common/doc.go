// Package common holds helpers shared by the engine binaries.
//
// It provides a gRPC client wrapper with per-call timeouts and detection of
// the local user recorded with acknowledgements.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
