package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/rehearsal-dev/voicescreen/internal/protocol"
	"github.com/rehearsal-dev/voicescreen/internal/session"
)

// inboundBuffer bounds the decoded client message queue between the
// transport read loop and the orchestrator.
const inboundBuffer = 64

// wsSender adapts a websocket connection to [session.Sender]. Only the
// orchestrator goroutine writes, so sends are ordered without extra
// locking.
type wsSender struct {
	conn *websocket.Conn
}

var _ session.Sender = (*wsSender)(nil)

func (s *wsSender) Send(ctx context.Context, msg protocol.ServerMessage) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// handleInterview upgrades the request to a WebSocket and runs one
// interview session over it. The handler owns two goroutines: a read loop
// that decodes client frames, and the orchestrator that drives the
// session.
func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	slog.Info("interview connection accepted", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	in := make(chan protocol.ClientMessage, inboundBuffer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(in)
		return readLoop(gctx, conn, in)
	})
	g.Go(func() error {
		// Unblock the read loop once the session is over, whatever the
		// outcome.
		defer cancel()
		return s.orch.Run(gctx, in, &wsSender{conn: conn})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("interview connection closed with error",
			"remote_addr", r.RemoteAddr, "error", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop decodes client frames into out until the connection closes.
// A cleanly closed or dropped connection is a normal exit; a frame that
// cannot be decoded at all is a transport fault and ends the session.
func readLoop(ctx context.Context, conn *websocket.Conn, out chan<- protocol.ClientMessage) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			// Closure, drop, or session-side cancellation.
			return nil
		}
		if typ != websocket.MessageText {
			return fmt.Errorf("read client frame: unexpected binary frame")
		}

		msg, err := protocol.DecodeClient(data)
		if err != nil {
			return fmt.Errorf("read client frame: %w", err)
		}

		select {
		case out <- *msg:
		case <-ctx.Done():
			return nil
		}
	}
}
