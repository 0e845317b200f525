package logger

import (
	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
)

// Logger is re-exported from eigensdk-go for convenience.
// This allows users of this package to work with loggers without importing sdklogging separately.
type Logger = sdklogging.Logger

// NoOpLogger implements Logger with no-op methods to avoid nil pointer panics.
type NoOpLogger struct{}

func (l *NoOpLogger) Info(msg string, tags ...any)          {}
func (l *NoOpLogger) Infof(format string, args ...any)      {}
func (l *NoOpLogger) Debug(msg string, tags ...any)         {}
func (l *NoOpLogger) Debugf(format string, args ...any)     {}
func (l *NoOpLogger) Error(msg string, tags ...any)         {}
func (l *NoOpLogger) Errorf(format string, args ...any)     {}
func (l *NoOpLogger) Warn(msg string, tags ...any)          {}
func (l *NoOpLogger) Warnf(format string, args ...any)      {}
func (l *NoOpLogger) Fatal(msg string, tags ...any)         {}
func (l *NoOpLogger) Fatalf(format string, args ...any)     {}
func (l *NoOpLogger) With(tags ...any) sdklogging.Logger    { return l }

// NewNoOpLogger creates a new no-op logger instance
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

// EnsureLogger returns the logger if not nil, otherwise returns a no-op logger.
func EnsureLogger(logger Logger) Logger {
	if logger == nil {
		return NewNoOpLogger()
	}
	return logger
}
