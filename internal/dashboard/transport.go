package dashboard

import "trafficwatch/internal/models"

// ConnState describes the lifecycle of the event subscription.
type ConnState int

const (
	ConnConnecting ConnState = iota
	ConnConnected
	ConnRetrying
	ConnFailed
	ConnClosed
)

// String returns a short label for logging.
func (c ConnState) String() string {
	switch c {
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnRetrying:
		return "retrying"
	case ConnFailed:
		return "failed"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventHandler is invoked once per received event, in delivery order.
// An invocation runs to completion before the next event is handled.
type EventHandler func(models.VideoEvent)

// StateHandler is notified of connection lifecycle changes. For ConnRetrying
// the attempt number (1-based) is passed; otherwise attempt is 0.
type StateHandler func(state ConnState, attempt int)

// Transport delivers named stream events from the backend. Implementations
// own connection establishment and reconnection; Close releases the
// subscription and stops delivery, even while a reconnect is in flight.
type Transport interface {
	Subscribe(handler EventHandler) error
	Close() error
}
