package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cricfever/backend/internal/metrics"
	"github.com/cricfever/backend/internal/room"
)

// connectionsGauge digs the ws_connections sample out of a Prometheus
// exposition body; the exporter decorates it with scope labels, so match on
// the metric name prefix only.
func connectionsGauge(body string) (string, bool) {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "#") || !strings.HasPrefix(line, "ws_connections") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return fields[len(fields)-1], true
		}
	}
	return "", false
}

func TestReconnectReplacementKeepsGaugeBalanced(t *testing.T) {
	ctx := context.Background()
	rec, promHandler, shutdown, err := metrics.Setup(ctx, metrics.TelemetryConfig{Enabled: true})
	if err != nil {
		t.Fatalf("metrics setup: %v", err)
	}
	defer shutdown(ctx)

	hub := NewHub(rec)
	hub.SetManager(room.NewManager(hub, room.DefaultOptions()))
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{hub: hub, conn: conn, playerID: "p-1", send: make(chan []byte, 16)}
		hub.register <- client
		go client.writePump()
		go client.readPump()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer c1.Close()

	// Same player dials again: the hub replaces the first connection.
	c2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer c2.Close()

	deadline := time.Now().Add(2 * time.Second)
	var lastSeen string
	for time.Now().Before(deadline) {
		req := httptest.NewRequest("GET", "/metrics", nil)
		w := httptest.NewRecorder()
		promHandler.ServeHTTP(w, req)
		if v, ok := connectionsGauge(w.Body.String()); ok {
			lastSeen = v
			if v == "1" {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("ws_connections = %q after replacement, want 1", lastSeen)
}
