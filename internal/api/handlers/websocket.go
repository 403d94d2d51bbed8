package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/playmatatu/minigolf/internal/ws"
)

// HandleSessionWebSocket streams frames of one session and accepts hits.
func HandleSessionWebSocket(m *game.Manager, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session(c, m)
		if !ok {
			return
		}
		hub.Serve(c.Writer, c.Request, sess)
	}
}

// HandleLobbyWebSocket streams events from every session.
func HandleLobbyWebSocket(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request, nil)
	}
}
