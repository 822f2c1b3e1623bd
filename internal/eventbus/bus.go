package eventbus

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	ErrClosed      = errors.New("channel is closed")
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Handler receives the payload of an unsolicited event.
type Handler func(data json.RawMessage) error

// AckFunc receives the server's reply to one emitted event.
type AckFunc func(data json.RawMessage) error

// Subscription is returned by On and removes the handler when disposed.
type Subscription interface {
	Unsubscribe()
}

// Emitter sends named events, optionally asking for a single reply.
type Emitter interface {
	Emit(event string, payload any, ack AckFunc) error
}

// Subscriber registers handlers for named events pushed by the server.
type Subscriber interface {
	On(event string, h Handler) Subscription
}

// Channel is the bidirectional named-event transport.
type Channel interface {
	Emitter
	Subscriber
}

// FrameType distinguishes events from acknowledgements on the wire
type FrameType string

const (
	FrameEvent FrameType = "event"
	FrameAck   FrameType = "ack"
)

// Frame is the JSON envelope exchanged over the socket. An event frame with
// a non-zero ID asks the peer for an ack frame carrying the same ID.
type Frame struct {
	Type  FrameType       `json:"type"`
	Event string          `json:"event,omitempty"`
	ID    uint64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodePayload marshals a payload, passing raw JSON through untouched.
func EncodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(p)
	}
}

// DispatchError represents a failure while delivering a frame
type DispatchError struct {
	Operation string
	Event     string
	Err       error
	Timestamp time.Time
}

func (e DispatchError) Error() string {
	if e.Event != "" {
		return e.Operation + " " + e.Event + ": " + e.Err.Error()
	}
	return e.Operation + ": " + e.Err.Error()
}

func (e DispatchError) Unwrap() error {
	return e.Err
}

// CircuitBreakerState represents the state of circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker stops writes to a transport that keeps failing
type CircuitBreaker struct {
	mu              sync.Mutex
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           CircuitBreakerState
	now             func() time.Time
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
		now:          time.Now,
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		// Check if we should transition to half-open
		if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
		}
	}
	return cb.state == CircuitOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = CircuitClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = cb.now()

	if cb.failureCount >= cb.maxFailures || cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// handlerSet keeps handlers per event in registration order.
type handlerSet struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]registered
}

type registered struct {
	id uint64
	h  Handler
}

func (hs *handlerSet) add(event string, h Handler) uint64 {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.handlers == nil {
		hs.handlers = make(map[string][]registered)
	}
	hs.nextID++
	hs.handlers[event] = append(hs.handlers[event], registered{id: hs.nextID, h: h})
	return hs.nextID
}

func (hs *handlerSet) remove(event string, id uint64) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	list := hs.handlers[event]
	for i, r := range list {
		if r.id == id {
			hs.handlers[event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(hs.handlers[event]) == 0 {
		delete(hs.handlers, event)
	}
}

func (hs *handlerSet) lookup(event string) []Handler {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	list := hs.handlers[event]
	out := make([]Handler, len(list))
	for i, r := range list {
		out[i] = r.h
	}
	return out
}

type subscription struct {
	once   sync.Once
	remove func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.remove)
}
