// conn.go — native-messaging channel transport over a byte stream pair,
// typically the stdio pipes of a spawned host binary. One request is in
// flight at a time, matching the browser's native port semantics.
package relay

import (
	"context"
	"fmt"
	"io"
	"sync"

	"skipai/internal/protocol"
)

// StreamHostConn speaks length-prefixed JSON frames over a reader/writer
// pair. Safe for concurrent callers; round-trips are serialized.
type StreamHostConn struct {
	mu sync.Mutex
	r  io.Reader
	w  io.Writer
}

// NewStreamHostConn wraps the given stream pair.
func NewStreamHostConn(r io.Reader, w io.Writer) *StreamHostConn {
	return &StreamHostConn{r: r, w: w}
}

// Roundtrip implements HostConn. The context bounds the wait: a hung host
// surfaces as ctx.Err() rather than a permanently blocked caller, though
// the stream itself stays unusable until the host answers or closes.
func (c *StreamHostConn) Roundtrip(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	type result struct {
		resp protocol.Response
		err  error
	}
	done := make(chan result, 1)

	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := protocol.WriteMessage(c.w, req); err != nil {
			done <- result{err: fmt.Errorf("write native request: %w", err)}
			return
		}
		var resp protocol.Response
		if err := protocol.ReadMessage(c.r, &resp); err != nil {
			done <- result{err: fmt.Errorf("read native response: %w", err)}
			return
		}
		done <- result{resp: resp}
	}()

	select {
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	case res := <-done:
		return res.resp, res.err
	}
}
