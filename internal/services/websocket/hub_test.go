package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trafficwatch/internal/config"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"

	"github.com/gorilla/websocket"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
}

// hubServer runs a hub and registers every upgraded connection with it.
func hubServer(t *testing.T, hub *HubService) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		hub.Register(conn)
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func dialHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial hub: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *HubService, want int) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for hub.ClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHub_BroadcastReachesEveryViewer(t *testing.T) {
	hub := NewHubService(testLogger(t))
	go hub.Run()

	server := hubServer(t, hub)
	defer server.Close()

	first := dialHub(t, server)
	defer first.Close()
	second := dialHub(t, server)
	defer second.Close()

	waitForClients(t, hub, 2)

	ev := models.VideoEvent{
		Image:  "ZnJhbWU=",
		Counts: map[string]int{models.ClassCar: 4},
		Status: &models.TrafficStatus{Level: models.LevelLow, Message: "Smooth Traffic Flow", Total: 4},
	}
	hub.BroadcastEvent(ev)

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read broadcast: %v", err)
		}

		var envelope models.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			t.Fatalf("Failed to decode envelope: %v", err)
		}
		if envelope.Event != models.EventVideoData {
			t.Errorf("Expected event %q, got %q", models.EventVideoData, envelope.Event)
		}

		var received models.VideoEvent
		if err := json.Unmarshal(envelope.Data, &received); err != nil {
			t.Fatalf("Failed to decode event data: %v", err)
		}
		if received.Counts[models.ClassCar] != 4 {
			t.Errorf("Expected 4 cars, got %d", received.Counts[models.ClassCar])
		}
		if received.Status == nil || received.Status.Level != models.LevelLow {
			t.Errorf("Unexpected status: %+v", received.Status)
		}
	}
}

func TestHub_UnregisterRemovesViewer(t *testing.T) {
	hub := NewHubService(testLogger(t))
	go hub.Run()

	server := hubServer(t, hub)
	defer server.Close()

	conn := dialHub(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_BroadcastWithoutViewersDoesNotBlock(t *testing.T) {
	hub := NewHubService(testLogger(t))
	go hub.Run()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast([]byte("frame"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Broadcast blocked with no viewers")
	}
}
