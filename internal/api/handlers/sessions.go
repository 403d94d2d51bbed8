package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigolf/internal/auth"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/playmatatu/minigolf/internal/models"
	"github.com/playmatatu/minigolf/internal/sim"
	"github.com/rs/zerolog/log"
)

const commandTimeout = 2 * time.Second

// Scorecards reads recorded strokes. *store.Recorder implements it.
type Scorecards interface {
	Strokes(ctx context.Context, sessionID string) ([]models.Stroke, error)
	Scorecard(ctx context.Context, sessionID string) ([]models.LevelScore, error)
}

// errorStatus maps game errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, game.ErrBallMoving):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidAim), errors.Is(err, game.ErrInvalidPower),
		errors.Is(err, sim.ErrInvalidTimeScale):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CreateSession starts a session and returns its bearer token.
func CreateSession(m *game.Manager, issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Seed *uint64 `json:"seed"`
		}
		// An empty body is allowed.
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
				return
			}
		}

		seed := uint64(time.Now().UnixNano())
		if req.Seed != nil {
			seed = *req.Seed
		}

		sess, err := m.Create(seed)
		if err != nil {
			log.Error().Err(err).Msg("[API] create session failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		token, exp, err := issuer.Issue(sess.ID)
		if err != nil {
			log.Error().Err(err).Str("session", sess.ID).Msg("[API] issue token failed")
			_ = m.Remove(sess.ID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"session_id": sess.ID,
			"token":      token,
			"expires_at": exp.UTC().Format(time.RFC3339),
			"seed":       seed,
			"state":      sess.Snapshot(),
		})
	}
}

// session fetches the session named by the :id parameter, writing the error
// response itself when there is none.
func session(c *gin.Context, m *game.Manager) (*game.Session, bool) {
	sess, err := m.Get(c.Param("id"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": "Session not found"})
		return nil, false
	}
	return sess, true
}

// GetSession returns the latest snapshot.
func GetSession(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session(c, m)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "state": sess.Snapshot()})
	}
}

// Hit strikes the ball.
func Hit(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Aim   *float64 `json:"aim" binding:"required"`
			Power *float64 `json:"power" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Aim and power required."})
			return
		}

		sess, ok := session(c, m)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
		defer cancel()
		if err := sess.Hit(ctx, *req.Aim, *req.Power); err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"session_id": sess.ID, "aim": *req.Aim, "power": *req.Power})
	}
}

// SetTimeScale changes playback speed; negative rewinds.
func SetTimeScale(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Scale *float64 `json:"scale" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Scale required."})
			return
		}

		sess, ok := session(c, m)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
		defer cancel()
		if err := sess.SetTimeScale(ctx, *req.Scale); err != nil {
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "state": sess.Snapshot()})
	}
}

// GetScorecard returns the recorded strokes of a session, which outlive the
// session itself.
func GetScorecard(scores Scorecards) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		card, err := scores.Scorecard(c.Request.Context(), id)
		if err != nil {
			log.Error().Err(err).Str("session", id).Msg("[API] scorecard failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scorecard"})
			return
		}
		strokes, err := scores.Strokes(c.Request.Context(), id)
		if err != nil {
			log.Error().Err(err).Str("session", id).Msg("[API] strokes failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scorecard"})
			return
		}

		total := 0
		for _, l := range card {
			total += l.Strokes
		}
		if card == nil {
			card = []models.LevelScore{}
		}
		if strokes == nil {
			strokes = []models.Stroke{}
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id": id,
			"levels":     card,
			"strokes":    strokes,
			"total":      total,
		})
	}
}
