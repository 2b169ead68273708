package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TextFormatter renders entries as a single human-readable line.
type TextFormatter struct {
	// TimeFormat overrides the timestamp layout. Empty means RFC3339.
	TimeFormat string
}

// NewTextFormatter creates a text formatter with default settings.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format implements Formatter.
func (f *TextFormatter) Format(e *Entry) ([]byte, error) {
	layout := f.TimeFormat
	if layout == "" {
		layout = time.RFC3339
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %-5s %s", e.Time.Format(layout), e.Level, e.Message)
	for _, field := range e.Fields {
		fmt.Fprintf(&buf, " %s=%v", field.Key, field.Value)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format implements Formatter.
func (f *JSONFormatter) Format(e *Entry) ([]byte, error) {
	record := make(map[string]any, len(e.Fields)+3)
	record["time"] = e.Time.Format(time.RFC3339Nano)
	record["level"] = e.Level.String()
	record["msg"] = e.Message
	for _, field := range e.Fields {
		if err, ok := field.Value.(error); ok {
			record[field.Key] = err.Error()
			continue
		}
		record[field.Key] = field.Value
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
