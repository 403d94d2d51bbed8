package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/playmatatu/minigolf/internal/api"
	"github.com/playmatatu/minigolf/internal/auth"
	"github.com/playmatatu/minigolf/internal/config"
	"github.com/playmatatu/minigolf/internal/course"
	"github.com/playmatatu/minigolf/internal/database"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/playmatatu/minigolf/internal/logging"
	"github.com/playmatatu/minigolf/internal/migrations"
	"github.com/playmatatu/minigolf/internal/redis"
	"github.com/playmatatu/minigolf/internal/store"
	"github.com/playmatatu/minigolf/internal/ws"
)

func main() {
	// Initialize configuration
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, !cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load levels
	tuning := cfg.Tuning()
	var catalog *course.Catalog
	var err error
	if cfg.LevelsFile != "" {
		catalog, err = course.LoadCatalog(cfg.LevelsFile, tuning.BallRadius)
	} else {
		catalog, err = course.DefaultCatalog(tuning.BallRadius)
	}
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.LevelsFile).Msg("failed to load levels")
	}
	log.Info().Int("levels", catalog.Len()).Msg("[COURSE] levels loaded")

	// Postgres and Redis are optional; without them strokes and summaries are
	// simply not kept.
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err = database.Connect(connectCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if cfg.MigrateOnStart {
			log.Info().Msg("[MIGRATE] running DB migrations on startup")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("failed to run migrations")
			}
		}
	} else {
		log.Warn().Msg("[DB] DATABASE_URL not set; strokes will not be recorded")
	}

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err = redis.Connect(connectCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
	} else {
		log.Warn().Msg("[REDIS] REDIS_URL not set; summaries and cross-instance events disabled")
	}

	recorder := store.NewRecorder(db, rdb)

	hub := ws.NewHub()
	go hub.Run(ctx)
	hub.StartEventSubscriber(ctx, rdb, store.EventsChannel)

	manager, err := game.NewManager(ctx, catalog, tuning, cfg.SessionOptions(), hub, recorder)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session manager")
	}
	manager.StartIdleReaper(ctx, cfg.SessionIdle(), time.Minute)

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, api.Deps{
		Config:  cfg,
		Manager: manager,
		Hub:     hub,
		Issuer:  auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL()),
		Scores:  recorder,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting minigolf server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	manager.Shutdown()
}
