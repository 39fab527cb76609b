package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cricfever/backend/internal/api/handlers"
	"github.com/cricfever/backend/internal/archive"
	"github.com/cricfever/backend/internal/config"
	"github.com/cricfever/backend/internal/room"
	"github.com/cricfever/backend/internal/ws"
)

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, manager *room.Manager, wsHandler *ws.Handler, store *archive.Store, metricsHandler http.Handler, cfg *config.Config) {
	// CORS middleware for the browser client
	corsOrigin := cfg.FrontendURL
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", corsOrigin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/stats", handlers.GetStats(manager))
		v1.GET("/leaderboard", handlers.GetLeaderboard(store))
		v1.GET("/matches", handlers.GetRecentMatches(store))
		v1.GET("/matches/:code", handlers.GetLastMatch(store))

		// Game websocket: everything match-related flows over this.
		v1.GET("/ws", wsHandler.HandleWebSocket)
	}
}
