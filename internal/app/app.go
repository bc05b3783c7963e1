package app

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	transporthttp "github.com/vovakirdan/wirechat-relay/internal/transport/http"
	"github.com/vovakirdan/wirechat-relay/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	relay           *tcp.Server
	server          *stdhttp.Server
	cfg             config.Config
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
// An empty HTTPAddr disables the admin API and websocket gateway.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	hub := core.NewHub(logger)
	relay := tcp.NewServer(hub, cfg, logger)

	a := &App{
		relay:           relay,
		cfg:             cfg,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}
	if cfg.HTTPAddr != "" {
		a.server = transporthttp.NewServer(hub, relay, cfg, logger)
	}
	return a
}

// Hub returns the shared chat state.
func (a *App) Hub() *core.Hub {
	return a.hub
}

// Run starts the relay listener and the HTTP server and blocks until context
// cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve runs the relay on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	relayErr := make(chan error, 1)
	go func() {
		relayErr <- a.relay.Serve(ctx, ln)
	}()

	serverErr := make(chan error, 1)
	if a.server != nil {
		// Websocket sessions outlive Shutdown, so they follow ctx instead.
		a.server.BaseContext = func(net.Listener) context.Context { return ctx }
		go func() {
			a.log.Info().Str("addr", a.server.Addr).Msg("http listening")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- err
				return
			}
			serverErr <- nil
		}()
	}

	var runErr error
	select {
	case runErr = <-relayErr:
		relayErr <- nil
	case runErr = <-serverErr:
		serverErr <- nil
	case <-ctx.Done():
	}
	cancel()

	return errors.Join(runErr, a.shutdown(relayErr, serverErr))
}

func (a *App) shutdown(relayErr, serverErr chan error) error {
	a.log.Info().Msg("shutting down")

	var errs []error
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := <-serverErr; err != nil {
			errs = append(errs, err)
		}
	}

	if err := <-relayErr; err != nil {
		errs = append(errs, err)
	}
	if !a.relay.Wait(a.shutdownTimeout) {
		a.log.Warn().Msg("relay sessions did not finish in time")
	}
	a.log.Info().Msg("server stopped")
	return errors.Join(errs...)
}
