package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// LogLevel represents the log level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// Fields carries structured key/value context for an entry.
type Fields map[string]interface{}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Service   string    `json:"service"`
	Operation string    `json:"operation,omitempty"`
	Error     string    `json:"error,omitempty"`
	RunID     string    `json:"run_id"`
	Fields    Fields    `json:"fields,omitempty"`
}

// Logger writes one JSON object per line. Every entry written by a Logger
// carries the same run id. A nil *Logger discards everything.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	service string
	runID   string
	now     func() time.Time
}

// NewLogger opens logPath in append mode and returns a logger writing to it.
// service names the component producing the entries (e.g. "trackdl").
func NewLogger(logPath, service string) (*Logger, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := NewWriterLogger(file, service)
	l.closer = file
	return l, nil
}

// NewWriterLogger returns a logger writing to w with a fresh run id.
func NewWriterLogger(w io.Writer, service string) *Logger {
	return &Logger{
		w:       w,
		service: service,
		runID:   uuid.NewString(),
		now:     time.Now,
	}
}

// RunID returns the id stamped on every entry of this run.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Close closes the underlying file, if the logger owns one.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer != nil {
		err := l.closer.Close()
		l.closer = nil
		return err
	}
	return nil
}

// Log writes a single entry.
func (l *Logger) Log(level LogLevel, operation, message string, err error, fields Fields) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Timestamp: l.now(),
		Level:     level,
		Message:   message,
		Service:   l.service,
		Operation: operation,
		RunID:     l.runID,
		Fields:    fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		// Fields held something unserializable; keep the entry without them.
		entry.Fields = nil
		entry.Error = fmt.Sprintf("%s (fields dropped: %v)", entry.Error, marshalErr)
		data, _ = json.Marshal(entry)
	}
	_, _ = l.w.Write(append(data, '\n'))
}

// Debug logs a debug message.
func (l *Logger) Debug(operation, message string, fields Fields) {
	l.Log(LogLevelDebug, operation, message, nil, fields)
}

// Info logs an info message.
func (l *Logger) Info(operation, message string, fields Fields) {
	l.Log(LogLevelInfo, operation, message, nil, fields)
}

// Warn logs a warning, optionally with the error that caused it.
func (l *Logger) Warn(operation, message string, err error, fields Fields) {
	l.Log(LogLevelWarn, operation, message, err, fields)
}

// Error logs an error message.
func (l *Logger) Error(operation, message string, err error, fields Fields) {
	l.Log(LogLevelError, operation, message, err, fields)
}
