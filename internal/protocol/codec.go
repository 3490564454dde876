// codec.go — native-messaging stdio framing: a uint32 little-endian length
// prefix followed by a JSON body, as the browser speaks it to host binaries.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize caps inbound frame bodies to prevent memory exhaustion on
// a corrupted or hostile stream. The browser's own limit for host-bound
// messages is in the same order of magnitude.
const MaxMessageSize = 1 << 20

// ErrMessageTooLarge is returned when a frame header announces a body
// larger than MaxMessageSize.
var ErrMessageTooLarge = errors.New("native message exceeds size limit")

// WriteMessage frames v as length-prefixed JSON onto w.
func WriteMessage(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode native message: %w", err)
	}
	if len(body) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed JSON frame from r into v.
// Returns io.EOF unwrapped when the stream ends cleanly between frames.
func ReadMessage(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("read frame header: %w", err)
	}
	n := binary.LittleEndian.Uint32(header[:])
	if n > MaxMessageSize {
		return ErrMessageTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		// EOF mid-frame is a truncated frame, not a clean close.
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read frame body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode native message: %w", err)
	}
	return nil
}
