// Package testutil provides test helpers shared across packages.
package testutil

import (
	"strings"
	"sync"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger and records every entry.  Child
// loggers made by With and Named write to the same record.
type MockLogger struct {
	sink   *sink
	name   string
	fields []logging.Field
}

type sink struct {
	mu       sync.Mutex
	level    string
	messages []LogMessage
}

// LogMessage represents a single log entry captured by MockLogger.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the first field named key.
func (m LogMessage) Field(key string) (interface{}, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// NewMockLogger creates a MockLogger recording every level.
func NewMockLogger() *MockLogger {
	return &MockLogger{sink: &sink{level: logging.LevelDebug}}
}

var levelRank = map[string]int{
	logging.LevelDebug: 0,
	logging.LevelInfo:  1,
	logging.LevelWarn:  2,
	logging.LevelError: 3,
	"fatal":            4,
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	if levelRank[level] < levelRank[m.sink.level] {
		return
	}
	all := make([]logging.Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)
	m.sink.messages = append(m.sink.messages, LogMessage{
		Level:   level,
		Logger:  m.name,
		Message: msg,
		Fields:  all,
	})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) {
	m.log(logging.LevelDebug, msg, fields)
}

func (m *MockLogger) Info(msg string, fields ...logging.Field) {
	m.log(logging.LevelInfo, msg, fields)
}

func (m *MockLogger) Warn(msg string, fields ...logging.Field) {
	m.log(logging.LevelWarn, msg, fields)
}

func (m *MockLogger) Error(msg string, fields ...logging.Field) {
	m.log(logging.LevelError, msg, fields)
}

// Fatal records the entry without exiting.
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) {
	m.log("fatal", msg, fields)
}

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	child := *m
	child.fields = append(append([]logging.Field(nil), m.fields...), fields...)
	return &child
}

func (m *MockLogger) Named(name string) logging.Logger {
	child := *m
	if m.name == "" {
		child.name = name
	} else {
		child.name = m.name + "." + name
	}
	return &child
}

// SetLevel changes the minimum recorded level for the logger and all its
// children.
func (m *MockLogger) SetLevel(level string) bool {
	level = strings.ToLower(level)
	if _, ok := levelRank[level]; !ok || level == "fatal" {
		return false
	}
	m.sink.mu.Lock()
	m.sink.level = level
	m.sink.mu.Unlock()
	return true
}

// GetMessages returns a copy of all logged messages.
func (m *MockLogger) GetMessages() []LogMessage {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	result := make([]LogMessage, len(m.sink.messages))
	copy(result, m.sink.messages)
	return result
}

// Clear removes all logged messages.
func (m *MockLogger) Clear() {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.messages = m.sink.messages[:0]
}

// Find returns the first message logged at level with text msg.
func (m *MockLogger) Find(level, msg string) (LogMessage, bool) {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	for _, logged := range m.sink.messages {
		if logged.Level == level && logged.Message == msg {
			return logged, true
		}
	}
	return LogMessage{}, false
}

// HasMessage checks if a message with the given level and content was logged.
func (m *MockLogger) HasMessage(level, msg string) bool {
	_, ok := m.Find(level, msg)
	return ok
}

var _ logging.Logger = (*MockLogger)(nil)
