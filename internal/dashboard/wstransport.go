package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"trafficwatch/internal/models"

	"github.com/gorilla/websocket"
)

// maxConnectAttempts bounds connection establishment retries. After the
// budget is spent the transport gives up and reports ConnFailed; Reconnect
// restores a fresh budget.
const maxConnectAttempts = 5

var (
	// ErrAlreadySubscribed is returned when Subscribe is called on a
	// transport that already has an active subscription.
	ErrAlreadySubscribed = errors.New("transport: already subscribed")

	// ErrClosed is returned when the transport has been closed.
	ErrClosed = errors.New("transport: closed")

	// ErrNotFailed is returned by Reconnect unless the transport has
	// exhausted its retry budget.
	ErrNotFailed = errors.New("transport: not in failed state")
)

// WSTransport subscribes to the backend event channel over a websocket.
// Events are delivered to the handler in the order read from the wire.
type WSTransport struct {
	url         string
	dialer      *websocket.Dialer
	onState     StateHandler
	maxAttempts int
	backoff     func(attempt int) time.Duration

	wg sync.WaitGroup

	mu      sync.Mutex
	conn    *websocket.Conn
	handler EventHandler
	cancel  context.CancelFunc
	active  bool
	failed  bool
	closed  bool
}

// NewWSTransport creates a transport for the given websocket URL. onState
// may be nil when the caller does not care about connection lifecycle.
func NewWSTransport(url string, onState StateHandler) *WSTransport {
	return &WSTransport{
		url:         url,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		onState:     onState,
		maxAttempts: maxConnectAttempts,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
	}
}

// Subscribe starts the connect/read loop in a background goroutine.
func (t *WSTransport) Subscribe(handler EventHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.active {
		return ErrAlreadySubscribed
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.handler = handler
	t.cancel = cancel
	t.active = true
	t.failed = false

	t.wg.Add(1)
	go t.run(ctx, handler)
	return nil
}

// Reconnect restarts the connect loop after the retry budget was exhausted.
func (t *WSTransport) Reconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if !t.failed || t.handler == nil {
		return ErrNotFailed
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.active = true
	t.failed = false

	t.wg.Add(1)
	go t.run(ctx, t.handler)
	return nil
}

// Close tears the subscription down. It unblocks a pending read,
// interrupts an in-flight reconnection attempt and waits for the reader
// goroutine to finish; no events are delivered after Close returns.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.active = false

	if t.cancel != nil {
		t.cancel()
	}
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.mu.Unlock()

	t.wg.Wait()

	t.notify(ConnClosed, 0)
	return nil
}

func (t *WSTransport) run(ctx context.Context, handler EventHandler) {
	defer t.wg.Done()

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		if attempt == 1 {
			t.notify(ConnConnecting, 0)
		} else {
			t.notify(ConnRetrying, attempt)
		}

		conn, resp, err := t.dialer.DialContext(ctx, t.url, nil)
		if err != nil {
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("stream connect attempt %d/%d failed: %v", attempt, t.maxAttempts, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(t.backoff(attempt)):
			}
			continue
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.conn = conn
		t.mu.Unlock()

		t.notify(ConnConnected, 0)
		t.readLoop(ctx, conn, handler)

		t.mu.Lock()
		t.conn = nil
		t.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		// The connection was established and then lost - start over with
		// a fresh retry budget.
		attempt = 0
	}

	t.mu.Lock()
	t.active = false
	t.failed = true
	t.mu.Unlock()

	log.Printf("stream gave up after %d connect attempts", t.maxAttempts)
	t.notify(ConnFailed, 0)
}

func (t *WSTransport) readLoop(ctx context.Context, conn *websocket.Conn, handler EventHandler) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("stream read error: %v", err)
			}
			conn.Close()
			return
		}

		var envelope models.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			log.Printf("stream: dropping malformed message: %v", err)
			continue
		}
		if envelope.Event != models.EventVideoData {
			continue
		}

		var ev models.VideoEvent
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			log.Printf("stream: dropping malformed %s payload: %v", envelope.Event, err)
			continue
		}

		handler(ev)
	}
}

func (t *WSTransport) notify(state ConnState, attempt int) {
	if t.onState != nil {
		t.onState(state, attempt)
	}
}
