package sip

import "log/slog"

var defLogger *slog.Logger

// SetDefaultLogger sets the logger DefaultLogger returns. The sip package's
// own parsing code does not log. Must be called before any usage of the
// package if a non-default logger is wanted.
func SetDefaultLogger(l *slog.Logger) {
	defLogger = l
}

// DefaultLogger returns the package logger, falling back to slog.Default().
func DefaultLogger() *slog.Logger {
	if defLogger != nil {
		return defLogger
	}
	return slog.Default()
}
