package schedule

import (
	"sync"
	"time"

	"github.com/planloom/loom/internal/types"
)

// EventType identifies a lifecycle event emitted during schedule execution.
type EventType string

const (
	// EventPlanStart fires once before any step starts.
	EventPlanStart EventType = "plan-start"

	// EventStepStart fires when a step is dispatched to its executor.
	EventStepStart EventType = "step-start"

	// EventStepComplete fires when a step's executor returns successfully.
	EventStepComplete EventType = "step-complete"

	// EventStepError fires when a step's executor fails.
	EventStepError EventType = "step-error"

	// EventDepthTransition fires between stages when the depth changes.
	EventDepthTransition EventType = "depth-transition"

	// EventProgress fires after each stage with cumulative counts.
	EventProgress EventType = "progress"

	// EventPlanComplete fires once after every step's terminal event, or
	// after the first unrecovered error.
	EventPlanComplete EventType = "plan-complete"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is one lifecycle event. For a given step the order is strictly
// step-start then step-complete or step-error; plan-start precedes every
// step-start and plan-complete follows every terminal event.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// EventEmitter fans lifecycle events out to subscribers over buffered
// channels. Emit never blocks: events are dropped for subscribers whose
// buffers are full, so one slow consumer cannot stall the engine.
type EventEmitter struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	bufferSize  int
	closed      bool
}

// NewEventEmitter creates an emitter whose subscriber channels buffer
// bufferSize events each.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 128
	}
	return &EventEmitter{
		subscribers: make(map[string]chan Event),
		bufferSize:  bufferSize,
	}
}

// Emit publishes an event to all subscribers without blocking.
func (e *EventEmitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return
	}

	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
			// Full buffer: drop for this subscriber.
		}
	}
}

// Subscribe returns a channel of events and a cleanup function. The cleanup
// function must be called to release the subscription; it closes the channel.
func (e *EventEmitter) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := types.NewID().String()
	ch := make(chan Event, e.bufferSize)
	e.subscribers[id] = ch

	cleanup := func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if sub, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(sub)
		}
	}

	return ch, cleanup
}

// Close shuts down the emitter and closes all subscriber channels.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true

	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (e *EventEmitter) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers)
}
