// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON
// (or text) logging with configurable log levels, optional rotating file output,
// and helpers for carrying a request-scoped logger in a context.
package logger
