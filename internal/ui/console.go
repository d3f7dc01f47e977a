package ui

import (
	"context"
	"io"
	"os"

	"unitydl/internal/logger"
)

// Console couples the logger with plain text writes and success lines.
type Console struct {
	logger logger.Logger
	output io.Writer
}

// NewConsole builds a Console bound to the provided logger.
func NewConsole(log logger.Logger, output io.Writer) *Console {
	if output == nil {
		output = os.Stdout
	}
	if log == nil {
		log = logger.NewColoredLogger(logger.WithOutput(output))
	}
	return &Console{logger: log, output: output}
}

// Logger exposes the underlying logger.
func (c *Console) Logger() logger.Logger {
	return c.logger
}

// Output is the writer used for non-log text.
func (c *Console) Output() io.Writer {
	return c.output
}

func (c *Console) Debug(format string, args ...interface{}) { c.logger.Debug(format, args...) }
func (c *Console) Info(format string, args ...interface{})  { c.logger.Info(format, args...) }
func (c *Console) Warn(format string, args ...interface{})  { c.logger.Warn(format, args...) }
func (c *Console) Error(format string, args ...interface{}) { c.logger.Error(format, args...) }

func (c *Console) DebugContext(ctx context.Context, msg string, fields ...logger.Field) {
	c.logger.DebugContext(ctx, msg, fields...)
}

// Success logs a success message with a consistent prefix.
func (c *Console) Success(format string, args ...interface{}) {
	c.logger.Info("✓ "+format, args...)
}
