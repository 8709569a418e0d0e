// Package logger provides structured logging for the crawler.
//
// It wraps zerolog behind a small Logger interface:
//   - Debug/Info/Warn/Error/Fatal with optional per-message fields
//   - derived loggers via WithField, WithFields and WithError
//   - pretty console output, optionally mirrored to a JSON log file
//   - a process-wide logger reachable through GetLogger
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	logger.WithField("question", token).Info("Crawl started")
//
// Tests use NewTestLogger to capture messages or NewNopLogger to drop them.
package logger
