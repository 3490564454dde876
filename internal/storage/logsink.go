// logsink.go — persists warn/error log lines into the bounded
// extension-logs buffer so the companion app can surface field
// diagnostics. Implements logging.Sink.
package storage

import (
	"sync"
	"time"

	"skipai/internal/logging"
)

// ExtensionLogSink mirrors warn and error lines into the extension-logs
// key (newest first, capped). Info and debug lines stay in the local files
// only; the shared buffer is for problems the companion app should see.
type ExtensionLogSink struct {
	mu     sync.Mutex
	store  Store
	source string
	ring   *Ring[LogEntry]
}

// NewExtensionLogSink creates a sink writing on behalf of the given source
// context ("background", "content", "host").
func NewExtensionLogSink(store Store, source string) *ExtensionLogSink {
	s := &ExtensionLogSink{
		store:  store,
		source: source,
		ring:   NewRing[LogEntry](ExtensionLogCap),
	}
	// Rehydrate so this process appends rather than clobbers.
	var existing []LogEntry
	if ok, err := store.GetJSON(KeyExtensionLogs, &existing); err == nil && ok {
		s.ring.Replace(existing)
	}
	return s
}

// Consume implements logging.Sink.
func (s *ExtensionLogSink) Consume(category logging.Category, level, message string) {
	if level != "warn" && level != "error" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring.Push(LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Source:    s.source,
		Context:   string(category),
	})
	// Failure to persist is not worth recursing into the logger for.
	_ = s.store.SetJSON(KeyExtensionLogs, s.ring.Snapshot())
}
