package storage

import "time"

// ExtensionStats is the persisted statistics record. The total fields are
// monotonically non-decreasing for the lifetime of the store except on a
// user-initiated reset; the lastSession fields hold the most recent raw
// per-page-load counters and exist only to compute deltas.
type ExtensionStats struct {
	LastSessionHidden int       `json:"lastSessionHidden"`
	LastSessionDupes  int       `json:"lastSessionDupes"`
	TotalHidden       int       `json:"totalHidden"`
	TotalDupes        int       `json:"totalDupes"`
	Timestamp         time.Time `json:"timestamp"`
}

// ExtensionPing records the most recent liveness announcement from one
// extension context. One record per source, overwritten on each ping.
type ExtensionPing struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	TabID     *int      `json:"tabId,omitempty"`
}

// LogEntry is one element of the bounded extension-logs buffer.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Context   string    `json:"context,omitempty"`
	File      string    `json:"file,omitempty"`
	Line      int       `json:"line,omitempty"`
}

// TraceEntry is one element of the handler-debug buffer: a minimal record
// of an inbound native message, kept purely for field diagnostics.
type TraceEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}
