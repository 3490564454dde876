package relay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"skipai/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeHost records round-trips and answers from a canned table.
type fakeHost struct {
	mu      sync.Mutex
	seen    []protocol.Request
	answers map[protocol.MessageType]protocol.Response
	err     error
}

func newFakeHost() *fakeHost {
	return &fakeHost{answers: map[protocol.MessageType]protocol.Response{
		protocol.TypeServiceWorkerStarted: {Status: "acknowledged"},
		protocol.TypeGetDisplayMode:       {DisplayMode: protocol.ModeHide},
		protocol.TypePing:                 {Type: "pong"},
	}}
}

func (f *fakeHost) Roundtrip(_ context.Context, req protocol.Request) (protocol.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, req)
	if f.err != nil {
		return protocol.Response{}, f.err
	}
	return f.answers[req.Type], nil
}

func (f *fakeHost) requests() []protocol.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Request, len(f.seen))
	copy(out, f.seen)
	return out
}

// chanSink collects broadcast deliveries.
type chanSink struct {
	mu   sync.Mutex
	seen []protocol.Request
}

func (s *chanSink) Deliver(req protocol.Request) {
	s.mu.Lock()
	s.seen = append(s.seen, req)
	s.mu.Unlock()
}

func (s *chanSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func TestStartNotifiesHostAndPings(t *testing.T) {
	h := newFakeHost()
	r := New(h, false)
	require.NoError(t, r.Start(context.Background()))

	reqs := h.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, protocol.TypeServiceWorkerStarted, reqs[0].Type)

	// The background context announces its own liveness right after.
	assert.Equal(t, protocol.TypeExtensionPing, reqs[1].Type)
	p, err := protocol.DecodePing(reqs[1].Data)
	require.NoError(t, err)
	assert.Equal(t, protocol.SourceBackground, p.Source)
}

func TestStartSurfacesHostFailure(t *testing.T) {
	h := newFakeHost()
	h.err = errors.New("host not installed")
	r := New(h, false)
	assert.Error(t, r.Start(context.Background()))
}

func TestHandleMessageDispatchesCanonicalType(t *testing.T) {
	h := newFakeHost()
	r := New(h, false)

	resp, err := r.HandleMessage(context.Background(), 1, protocol.Request{Type: "getDisplayMode"})
	require.NoError(t, err)
	assert.Equal(t, protocol.ModeHide, resp.DisplayMode)

	reqs := h.requests()
	require.Len(t, reqs, 1)
	// The legacy spelling is folded before it reaches the host.
	assert.Equal(t, protocol.TypeGetDisplayMode, reqs[0].Type)
}

func TestUnrecognizedTypeAnsweredNeutrally(t *testing.T) {
	h := newFakeHost()
	r := New(h, false)

	resp, err := r.HandleMessage(context.Background(), 1, protocol.Request{Type: "openSettings"})
	require.NoError(t, err, "the sender's call must resolve")
	if diff := cmp.Diff(protocol.Response{}, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, h.requests(), "unrecognized types never reach the host")
}

func TestDevBroadcastExcludesSender(t *testing.T) {
	h := newFakeHost()
	r := New(h, true)

	sender, other1, other2 := &chanSink{}, &chanSink{}, &chanSink{}
	r.RegisterTab(1, sender)
	r.RegisterTab(2, other1)
	r.RegisterTab(3, other2)

	_, err := r.HandleMessage(context.Background(), 1, protocol.Request{Type: protocol.TypePing})
	require.NoError(t, err)

	assert.Equal(t, 0, sender.count())
	assert.Equal(t, 1, other1.count())
	assert.Equal(t, 1, other2.count())

	// Unregistered tabs drop out of the broadcast set.
	r.UnregisterTab(3)
	_, err = r.HandleMessage(context.Background(), 1, protocol.Request{Type: protocol.TypePing})
	require.NoError(t, err)
	assert.Equal(t, 1, other2.count())
	assert.Equal(t, 2, other1.count())
}

func TestDevBroadcastEchoesToRuntime(t *testing.T) {
	h := newFakeHost()
	r := New(h, true)
	runtime, sender := &chanSink{}, &chanSink{}
	r.SetRuntimeSink(runtime)
	r.RegisterTab(1, sender)

	_, err := r.HandleMessage(context.Background(), 1, protocol.Request{Type: protocol.TypePing})
	require.NoError(t, err)

	// The runtime always gets a copy; the sending tab never does.
	assert.Equal(t, 1, runtime.count())
	assert.Equal(t, 0, sender.count())
}

func TestProductionNeverBroadcasts(t *testing.T) {
	h := newFakeHost()
	r := New(h, false)
	other, runtime := &chanSink{}, &chanSink{}
	r.RegisterTab(2, other)
	r.SetRuntimeSink(runtime)

	_, err := r.HandleMessage(context.Background(), 1, protocol.Request{Type: protocol.TypePing})
	require.NoError(t, err)
	assert.Equal(t, 0, other.count())
	assert.Equal(t, 0, runtime.count())
}

func TestTabTransportBindsTab(t *testing.T) {
	h := newFakeHost()
	r := New(h, true)
	sender, other := &chanSink{}, &chanSink{}
	r.RegisterTab(4, sender)
	r.RegisterTab(5, other)

	tr := &TabTransport{Relay: r, TabID: 4}
	resp, err := tr.Send(context.Background(), protocol.Request{Type: protocol.TypePing})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Type)
	assert.Equal(t, 0, sender.count())
	assert.Equal(t, 1, other.count())
}
