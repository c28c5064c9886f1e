// Package version reports build metadata for the engine binaries.
//
// Version, Commit and BuildTime may be set with -ldflags; missing values
// fall back to the VCS stamp recorded by the Go toolchain.
package version
