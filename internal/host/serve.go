// serve.go — stdio loop running the handler as a native-messaging host
// binary: length-prefixed JSON requests in, responses out.
package host

import (
	"context"
	"errors"
	"io"

	"skipai/internal/logging"
	"skipai/internal/protocol"
)

// Serve reads framed requests from r and writes one response per request
// to w until EOF (browser closed the port) or ctx is cancelled. Decode
// errors on the stream are fatal: framing is lost and the port must be
// reopened by the browser.
func (h *Handler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	logging.Host("native messaging host serving")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req protocol.Request
		if err := protocol.ReadMessage(r, &req); err != nil {
			if errors.Is(err, io.EOF) {
				logging.Host("native port closed")
				return nil
			}
			logging.HostError("native stream broken: %v", err)
			return err
		}
		resp := h.Handle(ctx, req)
		if err := protocol.WriteMessage(w, resp); err != nil {
			logging.HostError("write native response: %v", err)
			return err
		}
	}
}
