package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"facilita/internal/middleware"
	"facilita/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer; the upgrade itself accepts any.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades authenticated connections into realtime clients.
type WSHandler struct {
	hub *realtime.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect handles GET /ws
func (h *WSHandler) Connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := realtime.NewClient(
		h.hub,
		conn,
		c.GetString(middleware.ContextUserID),
		c.GetString(middleware.ContextUserRole),
		c.GetString(middleware.ContextUserName),
	)
	go client.Serve()
}
