// Package protocol defines the native-messaging envelope shared by the
// content, background, and host contexts, plus the stdio framing used on
// the host channel. The envelope is deliberately small: a type tag and an
// optional JSON payload.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageType identifies a native-messaging request.
type MessageType string

// Recognized request types. The camelCase forms are accepted on the wire
// for compatibility with older extension builds; Canonical folds them.
const (
	TypePing                 MessageType = "ping"
	TypeServiceWorkerStarted MessageType = "service_worker_started"
	TypeGetDisplayMode       MessageType = "get_display_mode"
	TypeExtensionStats       MessageType = "extension_stats"
	TypeExtensionPing        MessageType = "extension_ping"
)

// Canonical maps legacy camelCase type names onto their snake_case form.
// Unrecognized types pass through unchanged so the receiver can log them.
func (t MessageType) Canonical() MessageType {
	switch t {
	case "serviceWorkerStarted":
		return TypeServiceWorkerStarted
	case "getDisplayMode":
		return TypeGetDisplayMode
	case "extensionStats":
		return TypeExtensionStats
	case "extensionPing":
		return TypeExtensionPing
	}
	return t
}

// Recognized reports whether the type is part of the dispatch table.
func (t MessageType) Recognized() bool {
	switch t.Canonical() {
	case TypePing, TypeServiceWorkerStarted, TypeGetDisplayMode,
		TypeExtensionStats, TypeExtensionPing:
		return true
	}
	return false
}

// Request is the native message envelope: { "type": ..., "data"?: ... }.
type Request struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response carries the type-specific reply fields. Only the fields relevant
// to the request type are populated; the rest are omitted from the wire.
type Response struct {
	Type        string      `json:"type,omitempty"`        // "pong"
	Status      string      `json:"status,omitempty"`      // "acknowledged", "recorded"
	DisplayMode DisplayMode `json:"displayMode,omitempty"` // get_display_mode reply
	Error       string      `json:"error,omitempty"`
}

// DisplayMode is the user-selected suppression style.
type DisplayMode string

const (
	// ModeHide removes a matched region from layout.
	ModeHide DisplayMode = "hide"
	// ModeHighlight leaves a matched region visible but visually annotated.
	ModeHighlight DisplayMode = "highlight"
)

// Valid reports whether the mode is one of the two recognized values.
func (m DisplayMode) Valid() bool {
	return m == ModeHide || m == ModeHighlight
}

// ParseDisplayMode parses a stored or transmitted mode string.
func ParseDisplayMode(s string) (DisplayMode, error) {
	m := DisplayMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown display mode %q", s)
	}
	return m, nil
}

// PingSource identifies which extension context sent an extension_ping.
type PingSource string

const (
	SourceBackground PingSource = "background"
	SourceContent    PingSource = "content"
)

// PingPayload is the data field of an extension_ping request.
type PingPayload struct {
	Source PingSource `json:"source"`
	TabID  *int       `json:"tabId,omitempty"`
}

// StatsPayload is the data field of an extension_stats request. Counters
// are cumulative per page load; the host reconciles them into totals.
type StatsPayload struct {
	ElementsHidden  int `json:"elementsHidden"`
	DuplicatesFound int `json:"duplicatesFound"`
}

// DecodeStats decodes and validates an extension_stats payload. Both
// counter fields are required; a payload missing either is rejected before
// it can reach reconciliation.
func DecodeStats(raw json.RawMessage) (StatsPayload, error) {
	if len(raw) == 0 {
		return StatsPayload{}, fmt.Errorf("stats payload missing")
	}
	var probe struct {
		ElementsHidden  *int `json:"elementsHidden"`
		DuplicatesFound *int `json:"duplicatesFound"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return StatsPayload{}, fmt.Errorf("decode stats payload: %w", err)
	}
	if probe.ElementsHidden == nil || probe.DuplicatesFound == nil {
		return StatsPayload{}, fmt.Errorf("stats payload missing required numeric fields")
	}
	if *probe.ElementsHidden < 0 || *probe.DuplicatesFound < 0 {
		return StatsPayload{}, fmt.Errorf("stats payload has negative counters")
	}
	return StatsPayload{
		ElementsHidden:  *probe.ElementsHidden,
		DuplicatesFound: *probe.DuplicatesFound,
	}, nil
}

// DecodePing decodes and validates an extension_ping payload.
func DecodePing(raw json.RawMessage) (PingPayload, error) {
	if len(raw) == 0 {
		return PingPayload{}, fmt.Errorf("ping payload missing")
	}
	var p PingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return PingPayload{}, fmt.Errorf("decode ping payload: %w", err)
	}
	if p.Source != SourceBackground && p.Source != SourceContent {
		return PingPayload{}, fmt.Errorf("unknown ping source %q", p.Source)
	}
	return p, nil
}
