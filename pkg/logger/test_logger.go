package logger

import "sync"

// TestLogger collects log entries in memory for assertions in tests.
type TestLogger struct {
	mu      sync.Mutex
	entries []TestEntry
}

// TestEntry is a single captured log call.
type TestEntry struct {
	Level   string
	Message string
	Fields  []Field
}

// NewTestLogger returns an empty TestLogger.
func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

func (l *TestLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields...) }
func (l *TestLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields...) }
func (l *TestLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields...) }
func (l *TestLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields...) }

func (l *TestLogger) With(fields ...Field) Logger { return l }
func (l *TestLogger) Named(name string) Logger    { return l }
func (l *TestLogger) Sync() error                 { return nil }

func (l *TestLogger) log(level, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, TestEntry{Level: level, Message: msg, Fields: fields})
}

// Entries returns a copy of the captured entries.
func (l *TestLogger) Entries() []TestEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TestEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
