package handlers

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/GhostFramer/GhostFrame/internal/middleware"
	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/services"
	"github.com/GhostFramer/GhostFrame/internal/version"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The menu bar app and CLI send no Origin; browsers do, and only
		// pages served from this machine may connect.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && middleware.IsLoopbackHost(u.Hostname())
	},
}

// EventHandler streams registry state changes over WebSocket so the menu
// bar UI can re-render without polling.
type EventHandler struct {
	events *services.EventsService
}

// NewEventHandler creates a new EventHandler instance.
func NewEventHandler(events *services.EventsService) *EventHandler {
	return &EventHandler{events: events}
}

// Stream upgrades the connection and forwards every registry event until
// the client disconnects. The first frame is always a hello carrying the
// daemon version, so clients can detect mismatches immediately.
func (h *EventHandler) Stream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Events] failed to upgrade connection: %v", err)
		return
	}
	defer func() { _ = ws.Close() }()

	hello := models.Event{
		Type:      models.EventHello,
		Timestamp: time.Now(),
		Message:   version.Version,
	}
	if err := ws.WriteJSON(hello); err != nil {
		return
	}

	ch := h.events.Subscribe()
	defer h.events.Unsubscribe(ch)

	// Reader goroutine: we never expect client frames, but reading is how
	// gorilla surfaces the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := ws.WriteJSON(event); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
