package migbatch

import (
	"context"
	"fmt"
	"io"
	"log"
)

// LogLevel level of Logger
type LogLevel int

// log levels
const (
	Debug LogLevel = iota
	Info
	Warn
	Error
)

var levelNames = map[LogLevel]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

// Logger is the logging abstraction used by migbatch, see adapters/logger for a zap based implementation
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})
}

type defaultLogger struct {
	logger *log.Logger
	level  LogLevel
}

// NewLogger create a Logger writing to writer, messages below level are discarded
func NewLogger(writer io.Writer, level LogLevel) Logger {
	return &defaultLogger{
		logger: log.New(writer, "", log.LstdFlags|log.Lmicroseconds),
		level:  level,
	}
}

func (l *defaultLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.print(ctx, Debug, msg, args...)
}

func (l *defaultLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.print(ctx, Info, msg, args...)
}

func (l *defaultLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.print(ctx, Warn, msg, args...)
}

func (l *defaultLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.print(ctx, Error, msg, args...)
}

func (l *defaultLogger) print(ctx context.Context, level LogLevel, msg string, args ...interface{}) {
	if level < l.level {
		return
	}
	if runID, ok := JobRunIDFromContext(ctx); ok {
		msg = fmt.Sprintf("[run:%d] %s", runID, msg)
	}
	l.logger.Printf("[%s] "+msg, append([]interface{}{levelNames[level]}, args...)...)
}

type runIDKey struct{}

// WithJobRunID returns a context carrying the id of the JobRun being executed, loggers prefix messages with it
func WithJobRunID(ctx context.Context, runID int64) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// JobRunIDFromContext extracts the JobRun id stored by WithJobRunID
func JobRunIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(runIDKey{}).(int64)
	return id, ok
}
