package messenger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skipai/internal/protocol"
)

// scriptedTransport replays canned results per request type and records
// everything sent through it.
type scriptedTransport struct {
	mu      sync.Mutex
	sent    []protocol.Request
	results map[protocol.MessageType][]result
}

type result struct {
	resp protocol.Response
	err  error
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{results: make(map[protocol.MessageType][]result)}
}

func (s *scriptedTransport) queue(typ protocol.MessageType, resp protocol.Response, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[typ] = append(s.results[typ], result{resp, err})
}

func (s *scriptedTransport) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	queued := s.results[req.Type]
	if len(queued) == 0 {
		return protocol.Response{}, errors.New("no scripted result")
	}
	r := queued[0]
	s.results[req.Type] = queued[1:]
	return r.resp, r.err
}

func (s *scriptedTransport) sentOfType(typ protocol.MessageType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.sent {
		if req.Type == typ {
			n++
		}
	}
	return n
}

func fastOptions() Options {
	return Options{
		Timeout:      time.Second,
		StatsRetries: 2,
		StatsBackoff: time.Millisecond,
		FallbackMode: protocol.ModeHide,
	}
}

func TestDisplayModeMemoized(t *testing.T) {
	tr := newScriptedTransport()
	tr.queue(protocol.TypeGetDisplayMode, protocol.Response{DisplayMode: protocol.ModeHighlight}, nil)
	m := New(tr, fastOptions())

	ctx := context.Background()
	assert.Equal(t, protocol.ModeHighlight, m.DisplayMode(ctx))
	assert.Equal(t, protocol.ModeHighlight, m.DisplayMode(ctx))
	assert.Equal(t, protocol.ModeHighlight, m.DisplayMode(ctx))

	// One round-trip for any number of reads.
	assert.Equal(t, 1, tr.sentOfType(protocol.TypeGetDisplayMode))
}

func TestDisplayModeFallbackNotCached(t *testing.T) {
	tr := newScriptedTransport()
	tr.queue(protocol.TypeGetDisplayMode, protocol.Response{}, errors.New("port closed"))
	tr.queue(protocol.TypeGetDisplayMode, protocol.Response{DisplayMode: protocol.ModeHighlight}, nil)
	m := New(tr, fastOptions())

	ctx := context.Background()
	// Failure degrades to the fallback for this call only.
	assert.Equal(t, protocol.ModeHide, m.DisplayMode(ctx))
	// The next call retries and memoizes the real answer.
	assert.Equal(t, protocol.ModeHighlight, m.DisplayMode(ctx))
	assert.Equal(t, protocol.ModeHighlight, m.DisplayMode(ctx))
	assert.Equal(t, 2, tr.sentOfType(protocol.TypeGetDisplayMode))
}

func TestDisplayModeRejectsInvalidHostAnswer(t *testing.T) {
	tr := newScriptedTransport()
	tr.queue(protocol.TypeGetDisplayMode, protocol.Response{DisplayMode: "sparkle"}, nil)
	m := New(tr, fastOptions())

	assert.Equal(t, protocol.ModeHide, m.DisplayMode(context.Background()))
	// Invalid answers are not memoized either.
	tr.queue(protocol.TypeGetDisplayMode, protocol.Response{DisplayMode: protocol.ModeHide}, nil)
	assert.Equal(t, protocol.ModeHide, m.DisplayMode(context.Background()))
	assert.Equal(t, 2, tr.sentOfType(protocol.TypeGetDisplayMode))
}

func TestSendSurfacesHostError(t *testing.T) {
	tr := newScriptedTransport()
	tr.queue(protocol.TypeExtensionStats, protocol.Response{Error: "payload rejected"}, nil)
	m := New(tr, fastOptions())

	_, err := m.Send(context.Background(), protocol.TypeExtensionStats, protocol.StatsPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload rejected")
}

func TestReportStatsRetriesThenSucceeds(t *testing.T) {
	tr := newScriptedTransport()
	tr.queue(protocol.TypeExtensionStats, protocol.Response{}, errors.New("transient"))
	tr.queue(protocol.TypeExtensionStats, protocol.Response{Status: "recorded"}, nil)
	m := New(tr, fastOptions())

	m.ReportStats(context.Background(), 3, 1)
	assert.Equal(t, 2, tr.sentOfType(protocol.TypeExtensionStats))
}

func TestReportStatsGivesUpAfterRetries(t *testing.T) {
	tr := newScriptedTransport()
	for i := 0; i < 3; i++ {
		tr.queue(protocol.TypeExtensionStats, protocol.Response{}, errors.New("down"))
	}
	m := New(tr, fastOptions())

	m.ReportStats(context.Background(), 1, 0)
	// Initial attempt plus two retries, then the report is dropped.
	assert.Equal(t, 3, tr.sentOfType(protocol.TypeExtensionStats))
}

func TestReportStatsStopsOnCancel(t *testing.T) {
	tr := newScriptedTransport()
	m := New(tr, Options{
		Timeout:      time.Second,
		StatsRetries: 5,
		StatsBackoff: time.Hour, // never elapses; cancel must win
		FallbackMode: protocol.ModeHide,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	m.ReportStats(ctx, 1, 0)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, tr.sentOfType(protocol.TypeExtensionStats))
}

func TestPingCarriesSourceAndTab(t *testing.T) {
	tr := newScriptedTransport()
	tr.queue(protocol.TypeExtensionPing, protocol.Response{Type: "pong"}, nil)
	tab := 4
	opts := fastOptions()
	opts.TabID = &tab
	m := New(tr, opts)

	m.Ping(context.Background())

	require.Len(t, tr.sent, 1)
	p, err := protocol.DecodePing(tr.sent[0].Data)
	require.NoError(t, err)
	assert.Equal(t, protocol.SourceContent, p.Source)
	require.NotNil(t, p.TabID)
	assert.Equal(t, 4, *p.TabID)
}

func TestPingSwallowsFailure(t *testing.T) {
	tr := newScriptedTransport() // no scripted result: every send fails
	m := New(tr, fastOptions())
	m.Ping(context.Background()) // must not panic or block
	assert.Equal(t, 1, tr.sentOfType(protocol.TypeExtensionPing))
}
