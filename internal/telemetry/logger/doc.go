// Package logger provides structured logging for cfgclient.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, level handling, default logger
//   - context.go: request ID propagation
//   - redact.go: masking of passwords, tokens and key material
//
// Store paths and key aliases are deliberately not treated as secrets.
package logger
