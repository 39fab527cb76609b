package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cricfever/backend/internal/archive"
	"github.com/cricfever/backend/internal/config"
	"github.com/cricfever/backend/internal/room"
	"github.com/cricfever/backend/internal/ws"
)

func newTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	hub := ws.NewHub(nil)
	manager := room.NewManager(hub, room.DefaultOptions())
	hub.SetManager(manager)
	handler := ws.NewHandler(hub, manager, nil)

	SetupRoutes(router, manager, handler, archive.NewStore(nil, nil), nil, cfg)
	return router
}

func TestCORSUsesConfiguredFrontendOrigin(t *testing.T) {
	router := newTestRouter(&config.Config{
		Environment: "production",
		FrontendURL: "https://play.example.com",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://play.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestCORSDefaultsToWildcard(t *testing.T) {
	router := newTestRouter(&config.Config{Environment: "production"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestStatsEndpoint(t *testing.T) {
	router := newTestRouter(&config.Config{Environment: "production"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
}
