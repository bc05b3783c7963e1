package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// Server accepts stream connections and runs one session per connection
// against a shared hub.
type Server struct {
	hub *core.Hub
	cfg config.Config
	log *zerolog.Logger

	wg     sync.WaitGroup
	active atomic.Int64
}

// NewServer builds a relay server. A nil logger disables logging.
func NewServer(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{hub: hub, cfg: cfg, log: logger}
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed.
// Accept errors other than a closed listener are logged and retried.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("relay listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info().Msg("relay listener stopped")
				return nil
			}
			s.log.Error().Err(err).Msg("accept connection")
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

// HandleConn runs a session on conn and returns once it is closed and its
// client state removed. It is used by the websocket gateway, and Wait covers
// these sessions too.
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	s.wg.Add(1)
	defer s.wg.Done()

	s.handle(ctx, conn)
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	s.active.Add(1)
	defer s.active.Add(-1)

	newSession(s.hub, s.cfg, conn, s.log).run(ctx)
}

// Wait blocks until every running session has finished or timeout
// elapses. It reports whether all sessions finished.
func (s *Server) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		s.log.Warn().Int64("active", s.active.Load()).Msg("sessions still running after shutdown timeout")
		return false
	}
}

// ActiveSessions returns the number of connections currently being served.
func (s *Server) ActiveSessions() int64 {
	return s.active.Load()
}
