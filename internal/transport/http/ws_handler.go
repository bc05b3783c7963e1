package http

import (
	"context"
	"net"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// SessionHandler runs a relay session over a stream connection.
type SessionHandler interface {
	HandleConn(ctx context.Context, conn net.Conn)
}

// WSHandler upgrades HTTP connections and runs them as relay sessions.
// Each binary message carries bytes of the framed stream, so clients speak
// the same protocol as over TCP.
type WSHandler struct {
	sessions  SessionHandler
	readLimit int64
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(sessions SessionHandler, maxFrameSize int, logger *zerolog.Logger) *WSHandler {
	if maxFrameSize <= 0 {
		maxFrameSize = proto.DefaultMaxFrameSize
	}
	return &WSHandler{
		sessions:  sessions,
		readLimit: int64(maxFrameSize + proto.HeaderSize),
		log:       logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	conn.SetReadLimit(h.readLimit)

	ctx := r.Context()
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("ws connection upgraded")

	// The session closes the net.Conn, which sends a normal closure.
	h.sessions.HandleConn(ctx, websocket.NetConn(ctx, conn, websocket.MessageBinary))
}
