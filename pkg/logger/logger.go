// Package logger provides the leveled logging interface used across warpalarm.
// The scheduler traces its passes at debug level; the daemon and CLI log at
// info and above.
package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Logger defines the interface for leveled logging across all warpalarm components.
type Logger interface {
	// Debug logs a trace message (e.g., "alarm: signalling thread 3").
	// Implementations may drop debug messages unless explicitly enabled.
	Debug(format string, args ...interface{})

	// Info logs an informational message (e.g., "Daemon started").
	Info(format string, args ...interface{})

	// Warning logs a warning message (e.g., "alarm callback failed").
	Warning(format string, args ...interface{})

	// Error logs an error message (e.g., "Failed to start server: address in use").
	Error(format string, args ...interface{})

	// Close releases resources held by the logger.
	// Safe to call multiple times. Returns nil for loggers without resources.
	Close() error
}

// StandardLogger wraps the stdlib *log.Logger for console/file output.
type StandardLogger struct {
	logger *log.Logger
	debug  bool
}

// NewStandardLogger creates a logger that wraps the given *log.Logger.
// Debug messages are written only when debug is true.
func NewStandardLogger(l *log.Logger, debug bool) *StandardLogger {
	return &StandardLogger{logger: l, debug: debug}
}

// Debug logs a trace message with [DEBUG] prefix if debugging is enabled.
func (s *StandardLogger) Debug(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	s.logger.Printf("[DEBUG] "+format, args...)
}

// Info logs an informational message with [INFO] prefix.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

// Warning logs a warning message with [WARNING] prefix.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

// Error logs an error message with [ERROR] prefix.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// Close is a no-op for StandardLogger (no resources to release).
func (s *StandardLogger) Close() error {
	return nil
}

// NopLogger is a logger that discards all messages.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(format string, args ...interface{})   {}
func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}

// Close is a no-op.
func (n *NopLogger) Close() error {
	return nil
}

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// MockLogger records all log calls for verification in tests.
// It is safe for concurrent use, since the scheduler logs from its own goroutine.
type MockLogger struct {
	mu           sync.Mutex
	DebugCalls   []string
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
	CloseCalled  bool
}

// NewMockLogger creates a new MockLogger for testing.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(dst *[]string, format string, args []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

// Debug records the formatted message.
func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.record(&m.DebugCalls, format, args)
}

// Info records the formatted message.
func (m *MockLogger) Info(format string, args ...interface{}) {
	m.record(&m.InfoCalls, format, args)
}

// Warning records the formatted message.
func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.record(&m.WarningCalls, format, args)
}

// Error records the formatted message.
func (m *MockLogger) Error(format string, args ...interface{}) {
	m.record(&m.ErrorCalls, format, args)
}

// Close records that Close was called.
func (m *MockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
	return nil
}

// Contains reports whether any recorded message of any level contains substr.
func (m *MockLogger) Contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, calls := range [][]string{m.DebugCalls, m.InfoCalls, m.WarningCalls, m.ErrorCalls} {
		for _, c := range calls {
			if strings.Contains(c, substr) {
				return true
			}
		}
	}
	return false
}

var _ Logger = (*MockLogger)(nil)

// ToStdLogger returns a *log.Logger whose output is forwarded to l at info
// level, for libraries that only accept the stdlib logger.
func ToStdLogger(l Logger) *log.Logger {
	return log.New(infoWriter{l}, "", 0)
}

type infoWriter struct {
	l Logger
}

func (w infoWriter) Write(p []byte) (int, error) {
	w.l.Info("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
