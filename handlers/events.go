package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"songdrop/websocket"
)

// EventsHandler upgrades clients onto the ingestion event stream.
type EventsHandler struct {
	hub websocket.Hub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub websocket.Hub) *EventsHandler {
	return &EventsHandler{
		hub: hub,
	}
}

// HandleWebSocket upgrades the connection and subscribes it to every
// received/status/conflict/summary event.
func (h *EventsHandler) HandleWebSocket(c *gin.Context) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.RegisterClient(client)

	// Start client pumps
	client.StartPumps()
}
