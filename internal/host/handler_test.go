package host

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skipai/internal/protocol"
	"skipai/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	h := New(store, protocol.ModeHide)
	h.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return h, store
}

func statsRequest(hidden, dupes int) protocol.Request {
	raw, _ := json.Marshal(protocol.StatsPayload{ElementsHidden: hidden, DuplicatesFound: dupes})
	return protocol.Request{Type: protocol.TypeExtensionStats, Data: raw}
}

func readStats(t *testing.T, store storage.Store) storage.ExtensionStats {
	t.Helper()
	var stats storage.ExtensionStats
	found, err := store.GetJSON(storage.KeyStats, &stats)
	require.NoError(t, err)
	require.True(t, found)
	return stats
}

func TestPing(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := h.Handle(context.Background(), protocol.Request{Type: protocol.TypePing})
	assert.Equal(t, "pong", resp.Type)
	assert.Empty(t, resp.Error)
}

func TestServiceWorkerStarted(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := h.Handle(context.Background(), protocol.Request{Type: "serviceWorkerStarted"})
	assert.Equal(t, "acknowledged", resp.Status)
}

func TestGetDisplayMode(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()

	// No stored preference: build default.
	resp := h.Handle(ctx, protocol.Request{Type: protocol.TypeGetDisplayMode})
	assert.Equal(t, protocol.ModeHide, resp.DisplayMode)

	require.NoError(t, store.SetString(storage.KeyDisplayMode, "highlight"))
	resp = h.Handle(ctx, protocol.Request{Type: protocol.TypeGetDisplayMode})
	assert.Equal(t, protocol.ModeHighlight, resp.DisplayMode)

	// Garbage in the store falls back to the default.
	require.NoError(t, store.SetString(storage.KeyDisplayMode, "rainbow"))
	resp = h.Handle(ctx, protocol.Request{Type: protocol.TypeGetDisplayMode})
	assert.Equal(t, protocol.ModeHide, resp.DisplayMode)
}

func TestStatsReconciliation(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()

	// First report on a fresh store.
	resp := h.Handle(ctx, statsRequest(5, 1))
	assert.Equal(t, "recorded", resp.Status)
	stats := readStats(t, store)
	assert.Equal(t, 5, stats.TotalHidden)
	assert.Equal(t, 1, stats.TotalDupes)

	// Same page load, counters grew: only the delta is added.
	h.Handle(ctx, statsRequest(8, 1))
	stats = readStats(t, store)
	assert.Equal(t, 8, stats.TotalHidden)
	assert.Equal(t, 1, stats.TotalDupes)
	assert.Equal(t, 8, stats.LastSessionHidden)

	// Reload: counters reset below the last session, whole value is new.
	h.Handle(ctx, statsRequest(2, 0))
	stats = readStats(t, store)
	assert.Equal(t, 10, stats.TotalHidden)
	assert.Equal(t, 1, stats.TotalDupes)
	assert.Equal(t, 2, stats.LastSessionHidden)
	assert.Equal(t, 0, stats.LastSessionDupes)

	// Duplicate retransmission of the same counters adds nothing.
	h.Handle(ctx, statsRequest(2, 0))
	stats = readStats(t, store)
	assert.Equal(t, 10, stats.TotalHidden)
	assert.Equal(t, 1, stats.TotalDupes)
}

func TestMalformedStatsLeaveStorageUntouched(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()
	h.Handle(ctx, statsRequest(4, 0))

	for _, raw := range []string{
		`{"elementsHidden":3}`,
		`{"duplicatesFound":1}`,
		`{"elementsHidden":-2,"duplicatesFound":0}`,
		`not json`,
		``,
	} {
		resp := h.Handle(ctx, protocol.Request{Type: protocol.TypeExtensionStats, Data: json.RawMessage(raw)})
		assert.NotEmpty(t, resp.Error, "payload %q", raw)
	}

	stats := readStats(t, store)
	assert.Equal(t, 4, stats.TotalHidden)
	assert.Equal(t, 4, stats.LastSessionHidden)
}

func TestResetStats(t *testing.T) {
	h, store := newTestHandler(t)
	h.Handle(context.Background(), statsRequest(9, 3))
	require.NoError(t, h.ResetStats())

	stats := readStats(t, store)
	assert.Zero(t, stats.TotalHidden)
	assert.Zero(t, stats.TotalDupes)
	assert.Zero(t, stats.LastSessionHidden)

	// Reporting after a reset starts the totals from scratch.
	h.Handle(context.Background(), statsRequest(3, 0))
	assert.Equal(t, 3, readStats(t, store).TotalHidden)
}

func TestExtensionPingOverwritesPerSource(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()

	tab := 7
	raw, _ := json.Marshal(protocol.PingPayload{Source: protocol.SourceContent, TabID: &tab})
	resp := h.Handle(ctx, protocol.Request{Type: protocol.TypeExtensionPing, Data: raw})
	assert.Equal(t, "pong", resp.Type)

	var ping storage.ExtensionPing
	found, err := store.GetJSON(storage.KeyPingContent, &ping)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "content", ping.Source)
	require.NotNil(t, ping.TabID)
	assert.Equal(t, 7, *ping.TabID)

	// Second content ping overwrites, background ping lands separately.
	raw, _ = json.Marshal(protocol.PingPayload{Source: protocol.SourceContent})
	h.Handle(ctx, protocol.Request{Type: protocol.TypeExtensionPing, Data: raw})
	ping = storage.ExtensionPing{}
	_, err = store.GetJSON(storage.KeyPingContent, &ping)
	require.NoError(t, err)
	assert.Nil(t, ping.TabID)

	raw, _ = json.Marshal(protocol.PingPayload{Source: protocol.SourceBackground})
	h.Handle(ctx, protocol.Request{Type: protocol.TypeExtensionPing, Data: raw})
	found, err = store.GetJSON(storage.KeyPingBackground, &ping)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestUnrecognizedTypeTouchesOnlyDiagnostics(t *testing.T) {
	h, store := newTestHandler(t)
	resp := h.Handle(context.Background(), protocol.Request{Type: "openSettings"})
	assert.Equal(t, protocol.Response{}, resp)

	// Only the last-active timestamp and the debug trace may change.
	assert.ElementsMatch(t,
		[]string{storage.KeyLastActive, storage.KeyHandlerDebug},
		store.Keys())
}

func TestDebugTraceNewestFirstAndCapped(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()

	for i := 0; i < storage.HandlerDebugCap+5; i++ {
		typ := protocol.TypePing
		if i%2 == 0 {
			typ = protocol.TypeGetDisplayMode
		}
		h.Handle(ctx, protocol.Request{Type: typ})
	}
	h.Handle(ctx, protocol.Request{Type: protocol.TypeExtensionPing}) // rejected payload still traced

	var trace []storage.TraceEntry
	found, err := store.GetJSON(storage.KeyHandlerDebug, &trace)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, trace, storage.HandlerDebugCap)
	assert.Equal(t, string(protocol.TypeExtensionPing), trace[0].Type)
}

func TestCamelCaseTypesDispatch(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := h.Handle(context.Background(), protocol.Request{Type: "getDisplayMode"})
	assert.Equal(t, protocol.ModeHide, resp.DisplayMode)
}
