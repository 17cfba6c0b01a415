// Package logging provides structured logging for the file-safety core.
// It is also the fallback diagnostic channel for failures that are
// swallowed on purpose (snapshot capture, pruning, audit writes).
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Level represents a log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

// ParseLevel maps a config string to a Level. Unknown values yield info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Fields carries structured key/value context.
type Fields = map[string]any

// Logger provides structured logging.
type Logger struct {
	mu     *sync.Mutex
	level  *Level
	format Format
	output *io.Writer
	fields Fields
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

// NewLogger creates a new JSON logger writing to stderr.
func NewLogger(level Level) *Logger {
	var out io.Writer = os.Stderr
	return &Logger{
		mu:     &sync.Mutex{},
		level:  &level,
		format: FormatJSON,
		output: &out,
		fields: Fields{},
	}
}

// WithFields returns a child logger with additional fields. The child shares
// output and level with its parent.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := maps.Clone(l.fields)
	maps.Copy(merged, fields)
	return &Logger{
		mu:     l.mu,
		level:  l.level,
		format: l.format,
		output: l.output,
		fields: merged,
	}
}

// WithComponent is shorthand for WithFields({"component": name}).
func (l *Logger) WithComponent(name string) *Logger {
	return l.WithFields(Fields{"component": name})
}

func (l *Logger) enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level.rank() >= l.level.rank()
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...Fields) {
	if l.enabled(LevelDebug) {
		l.log(LevelDebug, msg, fields...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...Fields) {
	if l.enabled(LevelInfo) {
		l.log(LevelInfo, msg, fields...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Fields) {
	if l.enabled(LevelWarn) {
		l.log(LevelWarn, msg, fields...)
	}
}

// WarnErr logs a warning with an error value.
func (l *Logger) WarnErr(msg string, err error, fields ...Fields) {
	if l.enabled(LevelWarn) {
		l.log(LevelWarn, msg, withError(err, fields)...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(LevelError, msg, fields...)
}

// ErrorErr logs an error message with an error value.
func (l *Logger) ErrorErr(msg string, err error, fields ...Fields) {
	l.log(LevelError, msg, withError(err, fields)...)
}

func withError(err error, fields []Fields) []Fields {
	if err == nil {
		return fields
	}
	return append([]Fields{{"error": err.Error()}}, fields...)
}

func (l *Logger) log(level Level, msg string, fields ...Fields) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Fields:    maps.Clone(l.fields),
	}
	for _, f := range fields {
		maps.Copy(entry.Fields, f)
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	var line []byte
	if l.format == FormatText {
		line = formatText(entry)
	} else {
		data, err := json.Marshal(entry)
		if err != nil {
			data = []byte(`{"level":"error","message":"failed to marshal log entry"}`)
		}
		line = append(data, '\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	(*l.output).Write(line)
}

func formatText(e LogEntry) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", e.Timestamp, strings.ToUpper(string(e.Level)), e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.output = w
}

// SetLevel sets the log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

// SetFormat switches between json and text output for this logger.
func (l *Logger) SetFormat(f Format) {
	l.format = f
}

var (
	globalMu sync.RWMutex
	global   = NewLogger(LevelInfo)
)

// SetGlobal sets the global logger.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Global returns the global logger.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Debug logs to the global logger.
func Debug(msg string, fields ...Fields) { Global().Debug(msg, fields...) }

// Info logs to the global logger.
func Info(msg string, fields ...Fields) { Global().Info(msg, fields...) }

// Warn logs to the global logger.
func Warn(msg string, fields ...Fields) { Global().Warn(msg, fields...) }

// WarnErr logs a warning with an error to the global logger.
func WarnErr(msg string, err error, fields ...Fields) { Global().WarnErr(msg, err, fields...) }

// Error logs to the global logger.
func Error(msg string, fields ...Fields) { Global().Error(msg, fields...) }

// ErrorErr logs to the global logger with an error.
func ErrorErr(msg string, err error, fields ...Fields) { Global().ErrorErr(msg, err, fields...) }

// WithFields returns a new logger from global with additional fields.
func WithFields(fields Fields) *Logger {
	return Global().WithFields(fields)
}
