package logger

import (
	"fmt"

	"github.com/fatih/color"
)

// ColoredLogger renders log messages using colours when the output is a terminal.
type ColoredLogger struct {
	*StandardLogger
}

// NewColoredLogger returns a logger configured for colourful terminal output when possible.
func NewColoredLogger(options ...Option) *ColoredLogger {
	std := NewStandardLogger(options...)

	std.formatter = &ColoredFormatter{
		timestampFormat: "15:04:05",
		enableColors:    isTerminal(std.output) && !color.NoColor,
	}

	return &ColoredLogger{StandardLogger: std}
}

// ColoredFormatter renders log entries with coloured levels and faint fields.
type ColoredFormatter struct {
	timestampFormat string
	enableColors    bool
}

// Format converts the Entry into a coloured textual representation.
func (f *ColoredFormatter) Format(entry *Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.timestampFormat)

	level := entry.Level.String()
	if f.enableColors {
		if c := levelColor(entry.Level); c != nil {
			level = c.Sprint(level)
		}
	}

	faint := color.New(color.Faint)
	fields := func(field Field) string {
		text := fmt.Sprintf("%s=%v", field.Key, field.Value)
		if f.enableColors {
			return faint.Sprint(text)
		}
		return text
	}

	return formatEntry(entry, timestamp, level, fields), nil
}
