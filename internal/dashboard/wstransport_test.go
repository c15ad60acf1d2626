package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trafficwatch/internal/models"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamServer upgrades connections and sends each queued raw message once.
func streamServer(t *testing.T, messages [][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func collectEvents(received chan models.VideoEvent, want int, timeout time.Duration) []models.VideoEvent {
	var events []models.VideoEvent
	deadline := time.After(timeout)
	for len(events) < want {
		select {
		case ev := <-received:
			events = append(events, ev)
		case <-deadline:
			return events
		}
	}
	return events
}

func TestWSTransport_DeliversVideoDataInOrder(t *testing.T) {
	first, err := models.NewVideoDataEnvelope(models.VideoEvent{Counts: map[string]int{models.ClassCar: 1}})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	second, err := models.NewVideoDataEnvelope(models.VideoEvent{Counts: map[string]int{models.ClassCar: 2}})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}

	server := streamServer(t, [][]byte{first, second})
	defer server.Close()

	received := make(chan models.VideoEvent, 8)
	transport := NewWSTransport(wsURL(server), nil)
	defer transport.Close()

	if err := transport.Subscribe(func(ev models.VideoEvent) { received <- ev }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	events := collectEvents(received, 2, 3*time.Second)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Counts[models.ClassCar] != 1 || events[1].Counts[models.ClassCar] != 2 {
		t.Errorf("events out of order: %v", events)
	}
}

func TestWSTransport_IgnoresOtherEventsAndGarbage(t *testing.T) {
	wanted, err := models.NewVideoDataEnvelope(models.VideoEvent{Image: "ZGF0YQ=="})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}

	server := streamServer(t, [][]byte{
		[]byte("this is not json"),
		[]byte(`{"event":"heartbeat","data":{}}`),
		wanted,
	})
	defer server.Close()

	received := make(chan models.VideoEvent, 8)
	transport := NewWSTransport(wsURL(server), nil)
	defer transport.Close()

	if err := transport.Subscribe(func(ev models.VideoEvent) { received <- ev }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	events := collectEvents(received, 1, 3*time.Second)
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	if events[0].Image != "ZGF0YQ==" {
		t.Errorf("unexpected event: %+v", events[0])
	}

	select {
	case ev := <-received:
		t.Errorf("unexpected extra event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWSTransport_SecondSubscribeFails(t *testing.T) {
	server := streamServer(t, nil)
	defer server.Close()

	transport := NewWSTransport(wsURL(server), nil)
	defer transport.Close()

	if err := transport.Subscribe(func(models.VideoEvent) {}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := transport.Subscribe(func(models.VideoEvent) {}); err != ErrAlreadySubscribed {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
}

func TestWSTransport_CloseStopsDelivery(t *testing.T) {
	server := streamServer(t, nil)
	defer server.Close()

	var mu sync.Mutex
	var states []ConnState
	transport := NewWSTransport(wsURL(server), func(state ConnState, attempt int) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	})

	if err := transport.Subscribe(func(models.VideoEvent) {}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Wait until connected before tearing down.
	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		connected := len(states) > 0 && states[len(states)-1] == ConnConnected
		mu.Unlock()
		if connected {
			break
		}
		select {
		case <-deadline:
			t.Fatal("never reached connected state")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := transport.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}

	mu.Lock()
	last := states[len(states)-1]
	mu.Unlock()
	if last != ConnClosed {
		t.Errorf("expected final state closed, got %s", last)
	}

	if err := transport.Subscribe(func(models.VideoEvent) {}); err != ErrClosed {
		t.Errorf("Subscribe after Close: expected ErrClosed, got %v", err)
	}
}

// stateRecorder collects lifecycle notifications for later assertions.
type stateRecorder struct {
	mu     sync.Mutex
	states []ConnState
	// attempt that accompanied each state, index-aligned with states
	attempts []int
}

func (r *stateRecorder) record(state ConnState, attempt int) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.attempts = append(r.attempts, attempt)
	r.mu.Unlock()
}

func (r *stateRecorder) waitFor(t *testing.T, want ConnState, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		seen := false
		for _, state := range r.states {
			if state == want {
				seen = true
				break
			}
		}
		r.mu.Unlock()
		if seen {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("never reached state %s, saw %v", want, r.states)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWSTransport_RetryExhaustionThenReconnect(t *testing.T) {
	// The server refuses the upgrade until released, so every dial fails
	// with a bad handshake.
	var accept atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !accept.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	recorder := &stateRecorder{}
	transport := NewWSTransport(wsURL(server), recorder.record)
	transport.maxAttempts = 3
	transport.backoff = func(int) time.Duration { return time.Millisecond }
	defer transport.Close()

	if err := transport.Subscribe(func(models.VideoEvent) {}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	recorder.waitFor(t, ConnFailed, 3*time.Second)

	recorder.mu.Lock()
	states := append([]ConnState(nil), recorder.states...)
	attempts := append([]int(nil), recorder.attempts...)
	recorder.mu.Unlock()

	wantStates := []ConnState{ConnConnecting, ConnRetrying, ConnRetrying, ConnFailed}
	wantAttempts := []int{0, 2, 3, 0}
	if len(states) != len(wantStates) {
		t.Fatalf("expected states %v, got %v", wantStates, states)
	}
	for i := range wantStates {
		if states[i] != wantStates[i] || attempts[i] != wantAttempts[i] {
			t.Fatalf("notification %d: expected %s(%d), got %s(%d)",
				i, wantStates[i], wantAttempts[i], states[i], attempts[i])
		}
	}

	// Only a manual Reconnect recovers from the failed state.
	accept.Store(true)
	if err := transport.Reconnect(); err != nil {
		t.Fatalf("Reconnect from failed state: %v", err)
	}

	recorder.waitFor(t, ConnConnected, 3*time.Second)
}

func TestWSTransport_CloseWaitsForInFlightHandler(t *testing.T) {
	envelope, err := models.NewVideoDataEnvelope(models.VideoEvent{Counts: map[string]int{models.ClassCar: 1}})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}

	server := streamServer(t, [][]byte{envelope})
	defer server.Close()

	handlerEntered := make(chan struct{})
	handlerDone := make(chan struct{})

	transport := NewWSTransport(wsURL(server), nil)
	err = transport.Subscribe(func(models.VideoEvent) {
		close(handlerEntered)
		time.Sleep(200 * time.Millisecond)
		close(handlerDone)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	<-handlerEntered
	if err := transport.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Close must not return while a delivery is still running.
	select {
	case <-handlerDone:
	default:
		t.Error("Close returned while the event handler was still running")
	}
}

func TestWSTransport_ReconnectOnlyAfterFailure(t *testing.T) {
	server := streamServer(t, nil)
	defer server.Close()

	transport := NewWSTransport(wsURL(server), nil)
	defer transport.Close()

	if err := transport.Subscribe(func(models.VideoEvent) {}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := transport.Reconnect(); err != ErrNotFailed {
		t.Errorf("expected ErrNotFailed while healthy, got %v", err)
	}
}
