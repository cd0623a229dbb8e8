// pattern: Imperative Shell

package logging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ChannelSink implements zapcore.WriteSyncer by decoding each JSON line
// written by zap into a LogEntry and queueing it on a buffered channel.
// Writes never block: when the buffer is full the oldest entry is dropped.
type ChannelSink struct {
	entries chan LogEntry
	mu      sync.Mutex
	closed  bool
}

// NewChannelSink creates a sink holding up to bufferSize entries.
func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{
		entries: make(chan LogEntry, bufferSize),
	}
}

// Write implements io.Writer.
func (s *ChannelSink) Write(p []byte) (int, error) {
	entry, err := parseEntry(p)
	if err != nil {
		// Unparseable lines are dropped; logging must not fail because of them.
		return len(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("write to closed channel sink")
	}

	select {
	case s.entries <- entry:
	default:
		select {
		case <-s.entries:
		default:
		}
		select {
		case s.entries <- entry:
		default:
		}
	}
	return len(p), nil
}

// Sync implements zapcore.WriteSyncer.
func (s *ChannelSink) Sync() error {
	return nil
}

// Close closes the entries channel. Safe to call multiple times.
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	return nil
}

// Entries returns the channel of decoded entries.
func (s *ChannelSink) Entries() <-chan LogEntry {
	return s.entries
}

// parseEntry converts one zap JSON line into a LogEntry. The logger name
// becomes the scope, and a per-project scope also fills Project.
func parseEntry(data []byte) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogEntry{}, err
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Scope:     "app",
		Message:   takeString(raw, "msg"),
		Fields:    make(map[string]any, len(raw)),
	}
	if level := takeString(raw, "level"); level != "" {
		entry.Level = ParseLevel(level)
	}
	if scope := takeString(raw, "logger"); scope != "" {
		entry.Scope = scope
	}
	entry.Project = projectFromScope(entry.Scope)

	if ts, ok := raw["ts"].(float64); ok {
		sec := int64(ts)
		entry.Timestamp = time.Unix(sec, int64((ts-float64(sec))*1e9))
	}
	for _, k := range []string{"ts", "caller", "stacktrace"} {
		delete(raw, k)
	}

	for k, v := range raw {
		entry.Fields[k] = v
	}
	return entry, nil
}

// takeString removes key from raw and returns it when it holds a string.
func takeString(raw map[string]any, key string) string {
	v, ok := raw[key].(string)
	if !ok {
		return ""
	}
	delete(raw, key)
	return v
}
