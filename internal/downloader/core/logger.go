package core

import (
	"context"

	"unitydl/internal/logger"
)

// Logger abstracts the logging methods used by the fetcher.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Success(format string, args ...interface{})
	DebugContext(ctx context.Context, msg string, fields ...logger.Field)
}
