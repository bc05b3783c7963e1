package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// NewServer builds the admin HTTP server: health, read-only hub state and
// the websocket gateway into the relay sessions.
func NewServer(hub *core.Hub, sessions SessionHandler, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(hub, sessions, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler routes /ws to the websocket gateway and everything else to the
// gin router. gin's writer cannot be hijacked after the 101 is written, so
// /ws must not go through gin.
func NewHandler(hub *core.Hub, sessions SessionHandler, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(sessions, cfg.MaxFrameSize, logger))
	mux.Handle("/", NewRouter(hub, logger))
	return mux
}

// NewRouter returns the gin engine serving health and the admin API.
func NewRouter(hub *core.Hub, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(hub, logger)
	router.GET("/health", api.Health)

	group := router.Group("/api")
	{
		group.GET("/rooms", api.ListRooms)
		group.GET("/rooms/:name", api.GetRoom)
		group.GET("/clients", api.ListClients)
	}

	return router
}
