package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogPageFetch logs the outcome of one page request
func LogPageFetch(l Logger, offset int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"offset":      offset,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		l.WithError(err).ErrorWithFields("Page fetch failed", fields)
		return
	}
	l.DebugWithFields("Page fetched", fields)
}

// LogSnapshotSaved logs a snapshot file write
func LogSnapshotSaved(l Logger, path string, items int) {
	l.DebugWithFields("Snapshot saved", map[string]interface{}{
		"path":  path,
		"items": items,
	})
}

// LogAvatar logs the outcome of one avatar download
func LogAvatar(l Logger, name, file string, err error) {
	fields := map[string]interface{}{
		"author": name,
		"file":   file,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Avatar download failed", fields)
		return
	}
	l.DebugWithFields("Avatar downloaded", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l.WithField("component", component).InfoWithFields("Component started", settings)
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, summary map[string]interface{}) {
	l.WithField("component", component).InfoWithFields("Component stopped", summary)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
