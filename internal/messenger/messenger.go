// Package messenger implements the content-script side of the native
// messaging path. Every request goes through the background relay — the
// page context has no native-messaging capability of its own — and every
// failure degrades to a logged fallback so suppression never stalls on
// messaging.
package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"skipai/internal/logging"
	"skipai/internal/protocol"
)

// Transport forwards one structured request toward the host and returns
// its response. The background relay implements this; tests use fakes.
type Transport interface {
	Send(ctx context.Context, req protocol.Request) (protocol.Response, error)
}

// Options configure timeouts, retry, and the fallback display mode.
type Options struct {
	// Timeout bounds each round-trip. A hung host therefore costs at most
	// one timeout per attempt instead of a permanently pending call.
	Timeout time.Duration
	// StatsRetries is the number of additional attempts for a failed
	// stats report. Pings never retry.
	StatsRetries int
	// StatsBackoff is the fixed delay between stats attempts.
	StatsBackoff time.Duration
	// FallbackMode is used whenever the display mode cannot be fetched:
	// hide in production builds, highlight in development builds.
	FallbackMode protocol.DisplayMode
	// TabID is attached to liveness pings when known.
	TabID *int
}

// DefaultOptions returns production-channel defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:      3 * time.Second,
		StatsRetries: 2,
		StatsBackoff: 250 * time.Millisecond,
		FallbackMode: protocol.ModeHide,
	}
}

// Messenger is the content-side sender. One instance per page load; the
// memoized display mode lives and dies with it, which is sound because the
// mode cannot change mid-session without a page reload.
type Messenger struct {
	transport Transport
	opts      Options

	mu          sync.Mutex
	mode        protocol.DisplayMode
	modeFetched bool
}

// New creates a messenger over the given transport.
func New(transport Transport, opts Options) *Messenger {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.StatsBackoff <= 0 {
		opts.StatsBackoff = DefaultOptions().StatsBackoff
	}
	if !opts.FallbackMode.Valid() {
		opts.FallbackMode = protocol.ModeHide
	}
	return &Messenger{transport: transport, opts: opts}
}

// Send forwards one request with the configured timeout.
func (m *Messenger) Send(ctx context.Context, typ protocol.MessageType, data any) (protocol.Response, error) {
	req := protocol.Request{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return protocol.Response{}, fmt.Errorf("encode %s payload: %w", typ, err)
		}
		req.Data = raw
	}
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()
	resp, err := m.transport.Send(ctx, req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("send %s: %w", typ, err)
	}
	if resp.Error != "" {
		return resp, fmt.Errorf("host rejected %s: %s", typ, resp.Error)
	}
	return resp, nil
}

// Ping announces liveness for the content context. Fire-and-forget:
// failures are logged and swallowed.
func (m *Messenger) Ping(ctx context.Context) {
	payload := protocol.PingPayload{Source: protocol.SourceContent, TabID: m.opts.TabID}
	if _, err := m.Send(ctx, protocol.TypeExtensionPing, payload); err != nil {
		logging.MessengerWarn("liveness ping failed: %v", err)
	}
}

// DisplayMode returns the session display mode. The first successful fetch
// is memoized; a failed fetch returns the build-channel fallback without
// caching it, so the next scan retries instead of pinning the fallback for
// the whole session.
func (m *Messenger) DisplayMode(ctx context.Context) protocol.DisplayMode {
	m.mu.Lock()
	if m.modeFetched {
		mode := m.mode
		m.mu.Unlock()
		return mode
	}
	m.mu.Unlock()

	resp, err := m.Send(ctx, protocol.TypeGetDisplayMode, nil)
	if err != nil {
		logging.MessengerWarn("display mode fetch failed, using %s: %v", m.opts.FallbackMode, err)
		return m.opts.FallbackMode
	}
	if !resp.DisplayMode.Valid() {
		logging.MessengerWarn("host returned display mode %q, using %s", resp.DisplayMode, m.opts.FallbackMode)
		return m.opts.FallbackMode
	}

	m.mu.Lock()
	m.mode = resp.DisplayMode
	m.modeFetched = true
	m.mu.Unlock()
	return resp.DisplayMode
}

// ReportStats reports the session counters, retrying a bounded number of
// times with fixed backoff. Implements suppress.Reporter.
func (m *Messenger) ReportStats(ctx context.Context, hidden, dupes int) {
	payload := protocol.StatsPayload{ElementsHidden: hidden, DuplicatesFound: dupes}

	var lastErr error
	for attempt := 0; attempt <= m.opts.StatsRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				logging.MessengerWarn("stats report abandoned: %v", ctx.Err())
				return
			case <-time.After(m.opts.StatsBackoff):
			}
		}
		if _, lastErr = m.Send(ctx, protocol.TypeExtensionStats, payload); lastErr == nil {
			return
		}
	}
	logging.MessengerWarn("stats report dropped after %d attempts: %v", m.opts.StatsRetries+1, lastErr)
}
