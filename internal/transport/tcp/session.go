package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

type sessionState int

const (
	stateAwaitingFirstFrame sessionState = iota
	stateActive
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingFirstFrame:
		return "awaiting_first_frame"
	case stateActive:
		return "active"
	default:
		return "closed"
	}
}

// errDisconnect ends the read loop after a DISCONNECT command.
var errDisconnect = errors.New("client disconnected")

// session drives one connection: it decodes frames, resolves the sender and
// hands commands to the hub, while a writer goroutine drains replies.
type session struct {
	hub    *core.Hub
	cfg    config.Config
	conn   net.Conn
	client *core.Client
	log    zerolog.Logger

	state   sessionState
	names   map[string]struct{}
	bound   string
	limiter *rateLimiter
}

func newSession(hub *core.Hub, cfg config.Config, conn net.Conn, logger *zerolog.Logger) *session {
	addr := "unknown"
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	client := core.NewClient(utils.NewID(), addr, cfg.OutboundQueue)
	return &session{
		hub:     hub,
		cfg:     cfg,
		conn:    conn,
		client:  client,
		log:     logger.With().Str("conn_id", client.ID).Str("remote", addr).Logger(),
		names:   make(map[string]struct{}),
		limiter: newRateLimiter(cfg.RateLimit, time.Minute),
	}
}

// run blocks until the connection is finished and fully cleaned up.
func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.Debug().Msg("session started")

	stop := make(chan struct{})
	s.limiter.startReset(stop)
	defer close(stop)

	readDone := make(chan error, 1)
	writeDone := make(chan error, 1)
	go func() { readDone <- s.readLoop(ctx) }()
	go func() { writeDone <- s.writeLoop(ctx) }()

	var err error
	select {
	case err = <-readDone:
		// Let the writer flush replies queued before the reader stopped.
		cancel()
		if writeErr := <-writeDone; err == nil {
			err = writeErr
		}
	case err = <-writeDone:
		cancel()
		// Unblock the reader.
		_ = s.conn.Close()
		<-readDone
	}

	s.close(err)
}

func (s *session) close(reason error) {
	s.state = stateClosed
	s.client.Close()

	for name := range s.names {
		s.hub.Disconnect(name, s.client)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		s.log.Debug().Err(err).Msg("close connection")
	}

	switch {
	case reason == nil, errors.Is(reason, errDisconnect):
		s.log.Info().Msg("session closed")
	case proto.IsProtocolError(reason):
		s.log.Warn().Err(reason).Msg("session closed on protocol error")
	default:
		s.log.Warn().Err(reason).Msg("session closed with error")
	}
}

func (s *session) readLoop(ctx context.Context) error {
	dec := proto.NewDecoder(&idleReader{ctx: ctx, conn: s.conn, idle: s.cfg.IdleTimeout}, s.cfg.MaxFrameSize)

	for {
		req, err := dec.NextRequest()
		if err != nil {
			return s.readError(ctx, err)
		}

		if !s.limiter.allow() {
			s.deliver("Rate limit exceeded, slow down")
			continue
		}

		sender, ok := s.resolveSender(req.ClientName)
		if !ok {
			continue
		}

		cmd := requestToCommand(sender, req)
		if s.hub.Dispatch(s.client, cmd) {
			delete(s.names, sender)
			return errDisconnect
		}
	}
}

func (s *session) readError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case ctx.Err() != nil:
		return nil
	case proto.IsProtocolError(err):
		s.deliver("Protocol error, closing connection")
		return err
	case errors.Is(err, os.ErrDeadlineExceeded):
		s.log.Info().Dur("idle_timeout", s.cfg.IdleTimeout).Msg("idle timeout")
		return nil
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return nil
	default:
		return err
	}
}

// resolveSender applies the identity mode to the frame's clientname.
func (s *session) resolveSender(name string) (string, bool) {
	if s.cfg.IdentityMode == config.IdentityPerConnection {
		if s.state == stateAwaitingFirstFrame {
			if !s.hub.Claim(name, s.client) {
				s.deliver("Name " + name + " is already in use, pick another")
				return "", false
			}
			s.bind(name)
			return name, true
		}
		if name != s.bound {
			s.deliver("You are connected as " + s.bound)
			return "", false
		}
		return name, true
	}

	s.hub.Register(name, s.client)
	s.bind(name)
	return name, true
}

func (s *session) bind(name string) {
	if s.state == stateAwaitingFirstFrame {
		s.state = stateActive
		s.bound = name
		s.log.Info().Str("client", name).Msg("client identified")
	}
	s.names[name] = struct{}{}
}

// deliver queues a reply straight onto this connection.
func (s *session) deliver(text string) {
	if err := s.client.Deliver(core.Reply{To: s.bound, Text: text}); err != nil {
		s.log.Warn().Err(err).Msg("session reply dropped")
	}
}

func (s *session) writeLoop(ctx context.Context) error {
	for {
		select {
		case reply := <-s.client.Outbound():
			if err := s.write(reply); err != nil {
				s.log.Warn().Err(err).Str("client", reply.To).Msg("write reply")
				return err
			}
		case <-ctx.Done():
			return s.flush()
		}
	}
}

// flush writes replies already queued, without waiting for more.
func (s *session) flush() error {
	for {
		select {
		case reply := <-s.client.Outbound():
			if err := s.write(reply); err != nil {
				return nil
			}
		default:
			return nil
		}
	}
}

func (s *session) write(reply core.Reply) error {
	if s.cfg.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return proto.WriteReply(s.conn, reply.Text)
}

// idleReader refreshes the read deadline before every read.
type idleReader struct {
	ctx  context.Context
	conn net.Conn
	idle time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if r.idle > 0 {
		_ = r.conn.SetReadDeadline(time.Now().Add(r.idle))
	}
	return r.conn.Read(p)
}
