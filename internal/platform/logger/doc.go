// Package logger provides structured logging functionality for the application.
//
// It builds log/slog JSON (or text) loggers with a configurable level and
// carries request- or job-scoped loggers through context.Context.
package logger
