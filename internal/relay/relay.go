// Package relay implements the background context: the single component
// with authority to speak to the host application. Content scripts hand it
// structured messages; it dispatches recognized types over the native
// channel and returns the host's response to the original sender.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"skipai/internal/logging"
	"skipai/internal/protocol"
)

// HostConn is the native-messaging channel to the host application. The
// browser enforces that exactly one such channel exists, owned here.
type HostConn interface {
	Roundtrip(ctx context.Context, req protocol.Request) (protocol.Response, error)
}

// TabSink receives development-build relay copies of inbound messages.
type TabSink interface {
	Deliver(req protocol.Request)
}

// Relay dispatches content-script messages to the host and, in development
// builds, broadcasts relay copies to all other registered tabs and to the
// runtime sink.
type Relay struct {
	host HostConn
	dev  bool

	mu      sync.RWMutex
	sinks   map[int]TabSink
	runtime TabSink
}

// New creates a relay over the given host channel. dev enables the
// broadcast debugging aid; it must be false in production builds.
func New(host HostConn, dev bool) *Relay {
	return &Relay{host: host, dev: dev, sinks: make(map[int]TabSink)}
}

// Start notifies the host that the background context is running. Called
// on install/update and on every service-worker (re)start, letting the
// host distinguish "present but dormant" from "actively running". A
// background-source liveness ping follows so the host's per-source ping
// record stays current; its failure is logged, not fatal.
func (r *Relay) Start(ctx context.Context) error {
	resp, err := r.host.Roundtrip(ctx, protocol.Request{Type: protocol.TypeServiceWorkerStarted})
	if err != nil {
		return fmt.Errorf("notify host of service worker start: %w", err)
	}
	logging.Relay("service worker start acknowledged: %q", resp.Status)

	data, err := json.Marshal(protocol.PingPayload{Source: protocol.SourceBackground})
	if err != nil {
		return fmt.Errorf("encode background ping: %w", err)
	}
	if _, err := r.host.Roundtrip(ctx, protocol.Request{Type: protocol.TypeExtensionPing, Data: data}); err != nil {
		logging.RelayError("background liveness ping failed: %v", err)
	}
	return nil
}

// SetRuntimeSink attaches the runtime page's sink. Development broadcasts
// deliver a copy here in addition to the other tabs.
func (r *Relay) SetRuntimeSink(sink TabSink) {
	r.mu.Lock()
	r.runtime = sink
	r.mu.Unlock()
}

// RegisterTab attaches a sink for one tab.
func (r *Relay) RegisterTab(tabID int, sink TabSink) {
	r.mu.Lock()
	r.sinks[tabID] = sink
	r.mu.Unlock()
}

// UnregisterTab detaches a tab's sink.
func (r *Relay) UnregisterTab(tabID int) {
	r.mu.Lock()
	delete(r.sinks, tabID)
	r.mu.Unlock()
}

// HandleMessage processes one structured message from a content-script
// instance. Recognized types round-trip to the host; unrecognized types
// are logged and answered neutrally so the sender's call always resolves.
func (r *Relay) HandleMessage(ctx context.Context, fromTab int, req protocol.Request) (protocol.Response, error) {
	if r.dev {
		r.broadcast(fromTab, req)
	}

	if !req.Type.Recognized() {
		logging.RelayError("unrecognized message type %q from tab %d", req.Type, fromTab)
		return protocol.Response{}, nil
	}

	req.Type = req.Type.Canonical()
	logging.RelayDebug("dispatching %s from tab %d", req.Type, fromTab)
	resp, err := r.host.Roundtrip(ctx, req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("relay %s to host: %w", req.Type, err)
	}
	return resp, nil
}

// broadcast delivers a relay copy to every registered tab except the
// sender, plus the runtime sink. Development builds only; purely a
// debugging aid.
func (r *Relay) broadcast(fromTab int, req protocol.Request) {
	r.mu.RLock()
	targets := make([]TabSink, 0, len(r.sinks)+1)
	for id, sink := range r.sinks {
		if id == fromTab {
			continue
		}
		targets = append(targets, sink)
	}
	if r.runtime != nil {
		targets = append(targets, r.runtime)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	var g errgroup.Group
	for _, sink := range targets {
		sink := sink
		g.Go(func() error {
			sink.Deliver(req)
			return nil
		})
	}
	_ = g.Wait()
}

// TabTransport binds one tab's messenger to the relay for in-process
// wiring. It satisfies the content-side transport contract.
type TabTransport struct {
	Relay *Relay
	TabID int
}

// Send forwards the request as if it came from the bound tab.
func (t *TabTransport) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	return t.Relay.HandleMessage(ctx, t.TabID, req)
}
