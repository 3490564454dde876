// Package storage implements the shared key-value store visible to all
// three execution contexts: display-mode preference, rolling log buffers,
// liveness pings, and aggregated statistics. Two implementations are
// provided: an in-memory store for tests and single-process use, and a
// SQLite-backed store for the host application.
package storage

// Shared storage keys. These names are part of the contract with the
// companion app and must not change.
const (
	KeyDisplayMode    = "skip-ai-display-mode"
	KeyExtensionLogs  = "extension-logs"
	KeyHandlerDebug   = "handler-debug"
	KeyStats          = "extension-stats"
	KeyPingBackground = "extension-ping-background"
	KeyPingContent    = "extension-ping-content"
	KeyLastActive     = "extension-last-active"
)

// Capacity limits for the bounded, newest-first log buffers.
const (
	ExtensionLogCap = 100
	HandlerDebugCap = 20
)

// Store is the minimal key-value contract the host handler and companion
// app read-side depend on. Writes are atomic at the single-key level;
// there is no cross-key transaction and none is needed (every write in
// this subsystem is a single read-modify-write within one handler call).
type Store interface {
	// GetJSON decodes the value at key into v. The boolean is false when
	// the key is absent; v is left untouched in that case.
	GetJSON(key string, v any) (bool, error)
	// SetJSON encodes v and stores it at key, replacing any prior value.
	SetJSON(key string, v any) error
	GetString(key string) (string, bool, error)
	SetString(key, value string) error
	Delete(key string) error
	Close() error
}
