// Package buildinfo provides build information for cfgclient.
//
// This package exposes build-time information injected via ldflags:
//
//   - Version: Semantic version (e.g., "1.0.0")
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//
// The Go version is taken from the runtime.
package buildinfo
