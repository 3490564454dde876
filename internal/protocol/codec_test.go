package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundtrip(t *testing.T) {
	var buf bytes.Buffer

	in := Request{Type: TypeExtensionStats, Data: []byte(`{"elementsHidden":2,"duplicatesFound":0}`)}
	require.NoError(t, WriteMessage(&buf, in))

	// Header announces exactly the body length.
	header := buf.Bytes()[:4]
	assert.Equal(t, uint32(buf.Len()-4), binary.LittleEndian.Uint32(header))

	var out Request
	require.NoError(t, ReadMessage(&buf, &out))
	assert.Equal(t, in.Type, out.Type)
	assert.JSONEq(t, string(in.Data), string(out.Data))
}

func TestCodecMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Request{Type: TypePing}))
	require.NoError(t, WriteMessage(&buf, Request{Type: TypeGetDisplayMode}))

	var first, second Request
	require.NoError(t, ReadMessage(&buf, &first))
	require.NoError(t, ReadMessage(&buf, &second))
	assert.Equal(t, TypePing, first.Type)
	assert.Equal(t, TypeGetDisplayMode, second.Type)

	// Clean end of stream between frames is a plain EOF.
	err := ReadMessage(&buf, &Request{})
	assert.Equal(t, io.EOF, err)
}

func TestReadRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], MaxMessageSize+1)
	buf.Write(header[:])

	err := ReadMessage(&buf, &Request{})
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestReadTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], 10)
	buf.Write(header[:])
	buf.WriteString("{}")

	err := ReadMessage(&buf, &Request{})
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestWriteRejectsOversizedMessage(t *testing.T) {
	big := Request{Type: TypePing, Data: bytes.Repeat([]byte("1"), MaxMessageSize+1)}
	err := WriteMessage(io.Discard, big)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}
