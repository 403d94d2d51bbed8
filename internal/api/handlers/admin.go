package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/rs/zerolog/log"
)

// ListSessions returns every running session.
func ListSessions(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := m.List()
		c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
	}
}

// EndSession stops a running session.
func EndSession(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := m.Remove(id); err != nil {
			if errors.Is(err, game.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
			return
		}

		log.Info().Str("session", id).Str("ip", c.ClientIP()).Msg("[ADMIN] session ended")
		c.JSON(http.StatusOK, gin.H{"success": true, "session_id": id})
	}
}
