package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   MessageType
		want MessageType
	}{
		{"serviceWorkerStarted", TypeServiceWorkerStarted},
		{"getDisplayMode", TypeGetDisplayMode},
		{"extensionStats", TypeExtensionStats},
		{"extensionPing", TypeExtensionPing},
		{TypePing, TypePing},
		{TypeGetDisplayMode, TypeGetDisplayMode},
		{"bogus", "bogus"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Canonical(), "canonical of %q", tt.in)
	}
}

func TestRecognized(t *testing.T) {
	assert.True(t, TypePing.Recognized())
	assert.True(t, MessageType("serviceWorkerStarted").Recognized())
	assert.True(t, TypeExtensionStats.Recognized())
	assert.False(t, MessageType("").Recognized())
	assert.False(t, MessageType("openSettings").Recognized())
}

func TestParseDisplayMode(t *testing.T) {
	m, err := ParseDisplayMode(" Hide ")
	require.NoError(t, err)
	assert.Equal(t, ModeHide, m)

	m, err = ParseDisplayMode("highlight")
	require.NoError(t, err)
	assert.Equal(t, ModeHighlight, m)

	_, err = ParseDisplayMode("remove")
	assert.Error(t, err)
	_, err = ParseDisplayMode("")
	assert.Error(t, err)
}

func TestResponseOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Response{Type: "pong"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(raw))
}

func TestDecodeStats(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    StatsPayload
		wantErr bool
	}{
		{"valid", `{"elementsHidden":3,"duplicatesFound":1}`, StatsPayload{3, 1}, false},
		{"zeroes", `{"elementsHidden":0,"duplicatesFound":0}`, StatsPayload{}, false},
		{"missing hidden", `{"duplicatesFound":1}`, StatsPayload{}, true},
		{"missing dupes", `{"elementsHidden":3}`, StatsPayload{}, true},
		{"negative", `{"elementsHidden":-1,"duplicatesFound":0}`, StatsPayload{}, true},
		{"wrong type", `{"elementsHidden":"3","duplicatesFound":1}`, StatsPayload{}, true},
		{"not json", `nope`, StatsPayload{}, true},
		{"absent", ``, StatsPayload{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeStats(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePing(t *testing.T) {
	p, err := DecodePing(json.RawMessage(`{"source":"content","tabId":7}`))
	require.NoError(t, err)
	assert.Equal(t, SourceContent, p.Source)
	require.NotNil(t, p.TabID)
	assert.Equal(t, 7, *p.TabID)

	p, err = DecodePing(json.RawMessage(`{"source":"background"}`))
	require.NoError(t, err)
	assert.Equal(t, SourceBackground, p.Source)
	assert.Nil(t, p.TabID)

	_, err = DecodePing(json.RawMessage(`{"source":"popup"}`))
	assert.Error(t, err)
	_, err = DecodePing(nil)
	assert.Error(t, err)
}
