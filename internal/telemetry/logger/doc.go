// Package logger provides structured logging for respkv.
//
// It wraps log/slog:
//
//   - logger.go: handler construction, process-wide level
//   - context.go: context propagation with the connection id
//   - redact.go: masking of stored values and credentials
//
// The level is held in a shared slog.LevelVar so it can be changed at
// runtime (the server does this when its config file changes).
package logger
