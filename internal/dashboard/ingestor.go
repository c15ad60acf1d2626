package dashboard

import (
	"errors"
	"sync"
	"sync/atomic"

	"trafficwatch/internal/models"
)

// ErrIngestorRunning is returned when Start is called on an ingestor that
// already holds an active subscription.
var ErrIngestorRunning = errors.New("ingestor: subscription already active")

// Ingestor owns the lifetime of the event subscription and is the sole
// writer of the frame, counts and status fields of the shared state.
type Ingestor struct {
	state     *State
	transport Transport

	mu      sync.Mutex
	active  bool
	stopped atomic.Bool
}

// NewIngestor creates an ingestor bound to the given state and transport.
// The transport is injected so tests can run without a live backend.
func NewIngestor(state *State, transport Transport) *Ingestor {
	return &Ingestor{state: state, transport: transport}
}

// Start establishes the subscription. At most one subscription is active at
// any time; a second Start without an intervening Stop fails.
func (in *Ingestor) Start() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.active {
		return ErrIngestorRunning
	}

	in.stopped.Store(false)
	if err := in.transport.Subscribe(in.handle); err != nil {
		return err
	}
	in.active = true
	return nil
}

// Stop removes the subscription. After Stop returns, no further state
// mutations occur from this subscription, even for events already in
// flight or while a reconnection attempt is pending. Stop is idempotent.
func (in *Ingestor) Stop() error {
	in.mu.Lock()
	if !in.active {
		in.mu.Unlock()
		return nil
	}
	in.active = false
	in.mu.Unlock()

	// Flag first so a concurrently delivered event is dropped before the
	// transport teardown completes.
	in.stopped.Store(true)
	return in.transport.Close()
}

func (in *Ingestor) handle(ev models.VideoEvent) {
	if in.stopped.Load() {
		return
	}
	in.state.ApplyEvent(ev)
}
