// Package host implements the terminal endpoint of the native-messaging
// channel: the only component with extension-side write access to shared
// storage. It dispatches inbound requests, reconciles statistics across
// page reloads, and keeps the liveness and diagnostic records current.
package host

import (
	"context"
	"time"

	"skipai/internal/logging"
	"skipai/internal/protocol"
	"skipai/internal/storage"
)

// Handler processes native messages against a shared store.
type Handler struct {
	store       storage.Store
	defaultMode protocol.DisplayMode
	now         func() time.Time
}

// New creates a handler. defaultMode is the build-channel default returned
// when no display-mode preference has been stored yet.
func New(store storage.Store, defaultMode protocol.DisplayMode) *Handler {
	if !defaultMode.Valid() {
		defaultMode = protocol.ModeHide
	}
	return &Handler{store: store, defaultMode: defaultMode, now: time.Now}
}

// Handle processes one request and always produces a response, so the
// sender's call resolves even on errors. Every inbound request refreshes
// the last-active timestamp and appends a debug-trace entry regardless of
// type; neither has any behavioral effect on suppression.
func (h *Handler) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	_ = ctx
	typ := req.Type.Canonical()
	h.touchLastActive()
	h.appendTrace(typ)

	switch typ {
	case protocol.TypePing:
		return protocol.Response{Type: "pong"}

	case protocol.TypeServiceWorkerStarted:
		logging.Host("service worker started")
		return protocol.Response{Status: "acknowledged"}

	case protocol.TypeGetDisplayMode:
		return protocol.Response{DisplayMode: h.displayMode()}

	case protocol.TypeExtensionStats:
		stats, err := protocol.DecodeStats(req.Data)
		if err != nil {
			// Malformed payloads never reach reconciliation; storage is
			// left untouched.
			logging.HostWarn("rejecting stats payload: %v", err)
			return protocol.Response{Error: err.Error()}
		}
		h.reconcileStats(stats)
		return protocol.Response{Status: "recorded"}

	case protocol.TypeExtensionPing:
		ping, err := protocol.DecodePing(req.Data)
		if err != nil {
			logging.HostWarn("rejecting ping payload: %v", err)
			return protocol.Response{Error: err.Error()}
		}
		h.recordPing(ping)
		return protocol.Response{Type: "pong"}
	}

	logging.HostError("unrecognized message type %q", req.Type)
	return protocol.Response{}
}

// displayMode reads the stored preference, falling back to the build
// default when the key is absent, unreadable, or malformed. Storage
// failures are "no value", never errors surfaced to the caller.
func (h *Handler) displayMode() protocol.DisplayMode {
	raw, ok, err := h.store.GetString(storage.KeyDisplayMode)
	if err != nil {
		logging.HostWarn("display mode read failed, using default: %v", err)
		return h.defaultMode
	}
	if !ok {
		return h.defaultMode
	}
	mode, err := protocol.ParseDisplayMode(raw)
	if err != nil {
		logging.HostWarn("stored display mode invalid, using default: %v", err)
		return h.defaultMode
	}
	return mode
}

// reconcileStats folds one per-page-load report into the running totals.
// Counters grow monotonically within a page load and reset to zero on
// reload; a reported value smaller than the last one therefore means a
// reload, and the whole value is new.
func (h *Handler) reconcileStats(p protocol.StatsPayload) {
	var stats storage.ExtensionStats
	if _, err := h.store.GetJSON(storage.KeyStats, &stats); err != nil {
		logging.HostWarn("stats read failed, starting fresh: %v", err)
		stats = storage.ExtensionStats{}
	}

	stats.TotalHidden += delta(p.ElementsHidden, stats.LastSessionHidden)
	stats.TotalDupes += delta(p.DuplicatesFound, stats.LastSessionDupes)
	stats.LastSessionHidden = p.ElementsHidden
	stats.LastSessionDupes = p.DuplicatesFound
	stats.Timestamp = h.now()

	if err := h.store.SetJSON(storage.KeyStats, stats); err != nil {
		logging.HostWarn("stats write failed: %v", err)
		return
	}
	logging.HostDebug("stats reconciled: totals hidden=%d dupes=%d", stats.TotalHidden, stats.TotalDupes)
}

func delta(reported, lastSession int) int {
	if reported >= lastSession {
		return reported - lastSession // same page, counter grew
	}
	return reported // page reloaded, counter reset
}

// ResetStats clears totals and session fields. This user-initiated reset
// is the only permitted decrease of the total counters.
func (h *Handler) ResetStats() error {
	return h.store.SetJSON(storage.KeyStats, storage.ExtensionStats{Timestamp: h.now()})
}

// recordPing overwrites the per-source liveness record.
func (h *Handler) recordPing(p protocol.PingPayload) {
	key := storage.KeyPingContent
	if p.Source == protocol.SourceBackground {
		key = storage.KeyPingBackground
	}
	rec := storage.ExtensionPing{
		Source:    string(p.Source),
		Timestamp: h.now(),
		TabID:     p.TabID,
	}
	if err := h.store.SetJSON(key, rec); err != nil {
		logging.HostWarn("ping write failed: %v", err)
	}
}

func (h *Handler) touchLastActive() {
	if err := h.store.SetJSON(storage.KeyLastActive, h.now()); err != nil {
		logging.HostWarn("last-active write failed: %v", err)
	}
}

// appendTrace records the request type in the bounded handler-debug
// buffer, newest first.
func (h *Handler) appendTrace(typ protocol.MessageType) {
	var trace []storage.TraceEntry
	if _, err := h.store.GetJSON(storage.KeyHandlerDebug, &trace); err != nil {
		logging.HostDebug("debug trace read failed: %v", err)
		trace = nil
	}
	trace = storage.PrependCapped(trace, storage.TraceEntry{
		Timestamp: h.now(),
		Type:      string(typ),
	}, storage.HandlerDebugCap)
	if err := h.store.SetJSON(storage.KeyHandlerDebug, trace); err != nil {
		logging.HostDebug("debug trace write failed: %v", err)
	}
}
