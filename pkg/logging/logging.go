// Package logging provides the structured logger used across the framework.
// Diagnostic output defaults to stderr so that stdio transports keep stdout
// reserved for protocol traffic.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is the severity of a log message.
type Level int

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Field is one key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// String creates a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an integer field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Any creates a field with an arbitrary value.
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger is the structured logging interface consumed by the framework.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that attaches the fields to every entry.
	With(fields ...Field) Logger
}

// Entry is one formatted log record.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
	Fields  []Field
}

// Formatter renders an entry to bytes, including the trailing newline.
type Formatter interface {
	Format(e *Entry) ([]byte, error)
}

type logger struct {
	mu        *sync.Mutex
	out       io.Writer
	formatter Formatter
	level     Level
	fields    []Field
}

// New creates a logger writing to out with the given formatter. A nil out
// means stderr; a nil formatter means the text formatter.
func New(out io.Writer, formatter Formatter, level Level) Logger {
	if out == nil {
		out = os.Stderr
	}
	if formatter == nil {
		formatter = NewTextFormatter()
	}
	return &logger{mu: &sync.Mutex{}, out: out, formatter: formatter, level: level}
}

// Default returns an info-level text logger on stderr.
func Default() Logger {
	return New(nil, nil, InfoLevel)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return New(io.Discard, nil, ErrorLevel+1)
}

func (l *logger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *logger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &logger{mu: l.mu, out: l.out, formatter: l.formatter, level: l.level, fields: merged}
}

func (l *logger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	entry := &Entry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  append(append([]Field{}, l.fields...), fields...),
	}
	data, err := l.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: format failed: %v\n", err)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "logging: write failed: %v\n", err)
	}
}
