// pattern: Imperative Shell

package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NopLogger returns a logger that discards all output.
func NopLogger() *ScopedLogger {
	return &ScopedLogger{}
}

// TestLogManager is a LoggerProvider for tests. It logs at debug level to
// a channel only, so assertions can inspect what was written.
type TestLogManager struct {
	channelSink *ChannelSink
	baseZap     *zap.Logger

	mu      sync.RWMutex
	loggers map[string]*ScopedLogger
}

// NewTestLogManager creates a TestLogManager buffering up to bufferSize entries.
func NewTestLogManager(bufferSize int) *TestLogManager {
	channelSink := NewChannelSink(bufferSize)
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(channelSink),
		zapcore.DebugLevel,
	)
	return &TestLogManager{
		channelSink: channelSink,
		baseZap:     zap.New(core),
		loggers:     make(map[string]*ScopedLogger),
	}
}

// For returns the cached logger for scope.
func (m *TestLogManager) For(scope string) *ScopedLogger {
	m.mu.Lock()
	defer m.mu.Unlock()

	if logger, ok := m.loggers[scope]; ok {
		return logger
	}
	logger := newScopedLogger(m.baseZap, scope, zapcore.DebugLevel)
	m.loggers[scope] = logger
	return logger
}

// Entries returns the channel receiving every logged entry.
func (m *TestLogManager) Entries() <-chan LogEntry {
	return m.channelSink.Entries()
}

// Close closes the entry channel.
func (m *TestLogManager) Close() error {
	return m.channelSink.Close()
}
