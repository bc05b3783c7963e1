package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// APIHandlers serves a read-only view of the hub.
type APIHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub: hub,
		log: logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
	Size    int      `json:"size"`
}

// ClientsResponse lists online client names.
type ClientsResponse struct {
	Clients []string `json:"clients"`
}

// Health handles liveness checks.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ListRooms returns every room with its members, in creation order.
// GET /api/rooms
func (h *APIHandlers) ListRooms(c *gin.Context) {
	snapshot := h.hub.Registry().Snapshot()

	rooms := make([]RoomResponse, 0, len(snapshot))
	for _, room := range snapshot {
		rooms = append(rooms, toRoomResponse(room))
	}
	c.JSON(http.StatusOK, rooms)
}

// GetRoom returns a single room.
// GET /api/rooms/:name
func (h *APIHandlers) GetRoom(c *gin.Context) {
	name := c.Param("name")
	for _, room := range h.hub.Registry().Snapshot() {
		if room.Name == name {
			c.JSON(http.StatusOK, toRoomResponse(room))
			return
		}
	}
	h.log.Debug().Str("room", name).Msg("room not found")
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
}

// ListClients returns the names of online clients, sorted.
// GET /api/clients
func (h *APIHandlers) ListClients(c *gin.Context) {
	c.JSON(http.StatusOK, ClientsResponse{Clients: h.hub.Registry().Clients()})
}

func toRoomResponse(room core.RoomSnapshot) RoomResponse {
	members := room.Members
	if members == nil {
		members = []string{}
	}
	return RoomResponse{Name: room.Name, Members: members, Size: room.Size}
}
