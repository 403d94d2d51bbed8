package api

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigolf/internal/admin"
	"github.com/playmatatu/minigolf/internal/api/handlers"
	"github.com/playmatatu/minigolf/internal/auth"
	"github.com/playmatatu/minigolf/internal/config"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/playmatatu/minigolf/internal/middleware"
	"github.com/playmatatu/minigolf/internal/ws"
	"github.com/rs/zerolog/log"
)

// Deps are the services the routes are served from.
type Deps struct {
	Config  *config.Config
	Manager *game.Manager
	Hub     *ws.Hub
	Issuer  *auth.Issuer
	Scores  handlers.Scorecards
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	router.Use(middleware.CORSMiddleware(cfg))

	if !cfg.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Info().Msg("[DEV MODE] no-cache headers enabled for all routes")
	}

	wsCheck := middleware.WebSocketCORSCheck(cfg)
	requireToken := handlers.RequireSessionToken(d.Issuer)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.Manager))
		v1.GET("/levels", handlers.ListLevels(d.Manager.Catalog()))
		v1.GET("/lobby/ws", wsCheck, handlers.HandleLobbyWebSocket(d.Hub))

		v1.POST("/sessions", handlers.CreateSession(d.Manager, d.Issuer))

		sessions := v1.Group("/sessions/:id", requireToken)
		{
			sessions.GET("", handlers.GetSession(d.Manager))
			sessions.POST("/hit", handlers.Hit(d.Manager))
			sessions.PUT("/time-scale", handlers.SetTimeScale(d.Manager))
			sessions.GET("/scorecard", handlers.GetScorecard(d.Scores))
			sessions.GET("/ws", wsCheck, handlers.HandleSessionWebSocket(d.Manager, d.Hub))
		}

		adm := v1.Group("/admin", admin.Middleware(cfg.AdminKeyHash))
		{
			adm.GET("/sessions", handlers.ListSessions(d.Manager))
			adm.DELETE("/sessions/:id", handlers.EndSession(d.Manager))
		}
	}
}
