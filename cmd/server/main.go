package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cricfever/backend/internal/api"
	"github.com/cricfever/backend/internal/archive"
	"github.com/cricfever/backend/internal/auth"
	"github.com/cricfever/backend/internal/config"
	"github.com/cricfever/backend/internal/database"
	"github.com/cricfever/backend/internal/metrics"
	"github.com/cricfever/backend/internal/migrations"
	"github.com/cricfever/backend/internal/redis"
	"github.com/cricfever/backend/internal/room"
	"github.com/cricfever/backend/internal/ws"
)

func main() {
	// Initialize configuration (loads .env if present)
	cfg := config.Load()

	ctx := context.Background()

	// Database is optional: without it, matches are simply not archived.
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if os.Getenv("MIGRATE_ON_START") == "true" {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
	} else {
		log.Println("[DB] DATABASE_URL not set - match archiving disabled")
	}

	// Redis is optional: without it, there is no leaderboard.
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		var err error
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("[REDIS] REDIS_URL not set - leaderboard disabled")
	}

	// Telemetry
	rec, metricsHandler, shutdownMetrics, err := metrics.Setup(ctx, metrics.TelemetryConfig{
		Enabled:      cfg.TelemetryEnabled,
		ServiceName:  "cricfever-backend",
		OtlpEndpoint: cfg.OtlpEndpoint,
		OtlpInsecure: cfg.OtlpInsecure,
	})
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdownMetrics(ctx)

	// Room manager with pacing from config
	opts := room.DefaultOptions()
	opts.DefaultOvers = cfg.DefaultOvers
	opts.BallDelay = cfg.BallDelay()
	opts.WideBallDelay = cfg.WideBallDelay()
	opts.InningsBreakDelay = cfg.InningsBreak()
	opts.ReconnectGrace = cfg.DisconnectGrace()
	opts.RoomRetention = cfg.FinishedRoomRetain()
	opts.FieldingDifficulty = cfg.FieldingDifficulty

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.ResumeTokenTTL())
	store := archive.NewStore(db, rdb)

	hub := ws.NewHub(rec)
	manager := room.NewManager(hub, opts)
	hub.SetManager(manager)
	manager.SetTokenIssuer(tokens)
	manager.SetArchiver(store)
	manager.SetRecorder(rec)

	go hub.Run()

	wsHandler := ws.NewHandler(hub, manager, tokens)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, manager, wsHandler, store, metricsHandler, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting CricFever server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
