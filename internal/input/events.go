// Package input abstracts the kiosk's buttons behind timestamped down/up
// event queues. Events come from GPIO hardware, from a stdin emulation used
// during development, or from the local datagram control channel; the
// controller drains the queues every tick and never blocks a producer.
package input

import (
	"sync"
	"time"
)

// Kind is the type of a button event.
type Kind int

const (
	Down   Kind = iota // Button pressed
	Up                 // Button released
	Config             // Configuration-changed pseudo-event
)

// String returns the string representation of the event kind.
func (k Kind) String() string {
	switch k {
	case Down:
		return "down"
	case Up:
		return "up"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// Event is a single timestamped button event.
type Event struct {
	Kind Kind
	At   time.Time
}

// Queue is an append-only concurrent event queue with a single consumer.
// Push never blocks; Drain empties the queue wholesale.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue { return &Queue{} }

// Push appends an event.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// PushPress appends a synthetic down/up pair with the given hold duration.
func (q *Queue) PushPress(t time.Time, hold time.Duration) {
	q.mu.Lock()
	q.events = append(q.events,
		Event{Kind: Down, At: t},
		Event{Kind: Up, At: t.Add(hold)},
	)
	q.mu.Unlock()
}

// Drain returns and clears all queued events in arrival order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	evs := q.events
	q.events = nil
	return evs
}

// Gate debounces raw button events and tracks the logical pressed state: a
// down while logically down is ignored, an up without a preceding down is
// ignored, and events closer together than the bounce interval are dropped.
type Gate struct {
	bounce      time.Duration
	lastRaw     time.Time
	logicalDown bool
}

// NewGate creates a debouncing gate with the given bounce interval.
func NewGate(bounce time.Duration) *Gate {
	return &Gate{bounce: bounce}
}

// Accept reports whether the event should be acted upon, updating the
// logical button state when it is.
func (g *Gate) Accept(kind Kind, t time.Time) bool {
	if !g.lastRaw.IsZero() && t.Sub(g.lastRaw) < g.bounce {
		return false
	}

	switch kind {
	case Down:
		if g.logicalDown {
			return false
		}
		g.logicalDown = true
	case Up:
		if !g.logicalDown {
			return false
		}
		g.logicalDown = false
	default:
		return false
	}

	g.lastRaw = t
	return true
}

// IsLong classifies a press duration against the long-press threshold.
// A duration exactly at the threshold classifies as long.
func IsLong(duration, threshold time.Duration) bool {
	return duration >= threshold
}
