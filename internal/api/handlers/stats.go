package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cricfever/backend/internal/archive"
	"github.com/cricfever/backend/internal/room"
)

// GetStats reports live room and participant counts.
func GetStats(manager *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms, players := manager.Stats()
		c.JSON(http.StatusOK, gin.H{
			"rooms":   rooms,
			"players": players,
		})
	}
}

// GetLeaderboard returns the top players by wins.
func GetLeaderboard(store *archive.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseLimit(c.Query("limit"), 10, 100)
		entries, err := store.Leaderboard(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
	}
}

// GetRecentMatches returns the most recently finished matches.
func GetRecentMatches(store *archive.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseLimit(c.Query("limit"), 20, 100)
		matches, err := store.RecentMatches(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "match history unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

// GetLastMatch returns the cached result for a finished room, while the
// cache retains it.
func GetLastMatch(store *archive.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.ToUpper(c.Param("code"))
		result, err := store.LastMatch(c.Request.Context(), code)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "match lookup failed"})
			return
		}
		if result == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no result for this room"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
