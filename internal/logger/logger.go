// Package logger is a leveled, tagged wrapper over the standard log package.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelNone:
		return "none"
	case LogLevelError:
		return "error"
	case LogLevelWarning:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// ParseLevel accepts none, error, warn, info or debug.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "none", "off":
		return LogLevelNone, nil
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarning, nil
	case "info", "":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

type Logger struct {
	logger *log.Logger
	level  LogLevel
	tag    string
}

func NewLogger(logger *log.Logger, level LogLevel) *Logger {
	return &Logger{
		logger: logger,
		level:  level,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLogger(log.New(io.Discard, "", 0), LogLevelNone)
}

// WithTag creates a new logger with a tag prefix
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		tag:    tag,
	}
}

// Level returns the configured threshold.
func (l *Logger) Level() LogLevel {
	return l.level
}

func (l *Logger) formatMessage(level string, format string) string {
	var b strings.Builder
	if l.tag != "" {
		b.WriteString("[" + l.tag + "] ")
	}
	if level != "" {
		b.WriteString(level + " ")
	}
	b.WriteString(format)
	return b.String()
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.logger.Printf(l.formatMessage("DEBUG:", format), v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.logger.Printf(l.formatMessage("", format), v...)
	}
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.level >= LogLevelWarning {
		l.logger.Printf(l.formatMessage("WARN:", format), v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.level >= LogLevelError {
		l.logger.Printf(l.formatMessage("ERROR:", format), v...)
	}
}
