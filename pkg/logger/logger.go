// Package logger provides structured key/value logging for grove.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Logger is the logging interface used throughout grove.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// With returns a new logger with additional key-value pairs.
	With(keysAndValues ...any) Logger
}

// Level represents the log level.
type Level string

const (
	// LevelDebug represents debug-level logging.
	LevelDebug Level = "DEBUG"

	// LevelInfo represents info-level logging.
	LevelInfo Level = "INFO"

	// LevelError represents error-level logging.
	LevelError Level = "ERROR"

	// logFileMode is the permission mode for log files (owner read/write only).
	logFileMode = 0o600

	// logDirMode is the permission mode for the log directory.
	logDirMode = 0o700
)

// FileLogger writes log lines to a file.
type FileLogger struct {
	out     io.Writer
	baseKVs []any
	debug   bool
}

// NewFileLogger creates a FileLogger appending to the file at path,
// creating the parent directory if needed.
func NewFileLogger(path string, debug bool) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), logDirMode); err != nil {
		return nil, errors.Wrap(err, "creating log directory")
	}

	//nolint:gosec // G304: log path comes from xdg, not user input
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, errors.Wrap(err, "opening log file")
	}

	return &FileLogger{out: f, debug: debug}, nil
}

// NewWriterLogger creates a FileLogger writing to an arbitrary writer.
func NewWriterLogger(out io.Writer, debug bool) *FileLogger {
	return &FileLogger{out: out, debug: debug}
}

// Debug logs debug-level messages. Dropped unless debug mode is on.
func (l *FileLogger) Debug(msg string, keysAndValues ...any) {
	if !l.debug {
		return
	}

	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs info-level messages.
func (l *FileLogger) Info(msg string, keysAndValues ...any) {
	l.log(LevelInfo, msg, keysAndValues...)
}

// Error logs error-level messages.
func (l *FileLogger) Error(msg string, keysAndValues ...any) {
	l.log(LevelError, msg, keysAndValues...)
}

// With returns a new logger with additional base key-value pairs.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (l *FileLogger) With(keysAndValues ...any) Logger {
	kvs := make([]any, 0, len(l.baseKVs)+len(keysAndValues))
	kvs = append(kvs, l.baseKVs...)
	kvs = append(kvs, keysAndValues...)

	return &FileLogger{out: l.out, baseKVs: kvs, debug: l.debug}
}

func (l *FileLogger) log(level Level, msg string, keysAndValues ...any) {
	if l.out == nil {
		return
	}

	var b strings.Builder

	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString(" ")
	b.WriteString(string(level))
	b.WriteString(" ")
	b.WriteString(msg)

	writeKeyValues(&b, l.baseKVs)
	writeKeyValues(&b, keysAndValues)

	b.WriteString("\n")

	_, _ = io.WriteString(l.out, b.String())
}

// writeKeyValues appends formatted key-value pairs. An odd trailing
// argument is dropped.
func writeKeyValues(b *strings.Builder, kvs []any) {
	for i := 0; i+1 < len(kvs); i += 2 {
		value := fmt.Sprintf("%v", kvs[i+1])
		if strings.ContainsAny(value, " \t\n\"") {
			value = fmt.Sprintf("%q", value)
		}

		fmt.Fprintf(b, " %v=%s", kvs[i], value)
	}
}

// NoopLogger discards everything.
type NoopLogger struct{}

// NewNoopLogger creates a NoopLogger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// Debug does nothing.
func (*NoopLogger) Debug(string, ...any) {}

// Info does nothing.
func (*NoopLogger) Info(string, ...any) {}

// Error does nothing.
func (*NoopLogger) Error(string, ...any) {}

// With returns the same NoopLogger.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (n *NoopLogger) With(...any) Logger {
	return n
}
