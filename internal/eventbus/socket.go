package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Socket is a Channel over a websocket connection. All inbound frames are
// dispatched from the single goroutine running Run, one at a time.
type Socket struct {
	conn     *websocket.Conn
	logger   *slog.Logger
	breaker  *CircuitBreaker
	handlers handlerSet

	writeMu sync.Mutex

	mu     sync.Mutex
	acks   map[uint64]AckFunc
	nextID uint64
	closed bool

	errorCallback func(DispatchError)
}

// Dial connects to a websocket endpoint.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewSocket(conn, logger), nil
}

// NewSocket wraps an established connection.
func NewSocket(conn *websocket.Conn, logger *slog.Logger) *Socket {
	if logger == nil {
		logger = slog.Default()
	}
	return &Socket{
		conn:    conn,
		logger:  logger,
		breaker: NewCircuitBreaker(5, 30*time.Second),
		acks:    make(map[uint64]AckFunc),
	}
}

func (s *Socket) SetErrorCallback(callback func(DispatchError)) {
	s.errorCallback = callback
}

func (s *Socket) reportError(operation, event string, err error) {
	dispatchErr := DispatchError{
		Operation: operation,
		Event:     event,
		Err:       err,
		Timestamp: time.Now(),
	}
	s.logger.Debug("socket dispatch failed", "operation", operation, "event", event, "error", err)
	if s.errorCallback != nil {
		s.errorCallback(dispatchErr)
	}
}

// Emit sends an event. When ack is non-nil the frame carries a fresh ID and
// ack is invoked once with the peer's reply.
func (s *Socket) Emit(event string, payload any, ack AckFunc) error {
	if s.breaker.IsOpen() {
		s.reportError("emit", event, ErrCircuitOpen)
		return ErrCircuitOpen
	}

	data, err := EncodePayload(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	frame := Frame{Type: FrameEvent, Event: event, Data: data}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if ack != nil {
		s.nextID++
		frame.ID = s.nextID
		s.acks[frame.ID] = ack
	}
	s.mu.Unlock()

	if err := s.write(frame); err != nil {
		if frame.ID != 0 {
			s.mu.Lock()
			delete(s.acks, frame.ID)
			s.mu.Unlock()
		}
		s.breaker.RecordFailure()
		s.reportError("emit", event, err)
		return fmt.Errorf("emit %s: %w", event, err)
	}
	s.breaker.RecordSuccess()
	return nil
}

func (s *Socket) write(frame Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

// On registers a handler for an unsolicited event.
func (s *Socket) On(event string, h Handler) Subscription {
	id := s.handlers.add(event, h)
	return &subscription{remove: func() { s.handlers.remove(event, id) }}
}

// Pending returns the number of emitted events still waiting for an ack.
func (s *Socket) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.acks)
}

// Run reads frames until the connection fails or ctx is cancelled.
// Acks still outstanding when Run returns are never invoked.
func (s *Socket) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-stop:
		}
	}()

	for {
		var frame Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		s.dispatch(frame)
	}
}

func (s *Socket) dispatch(frame Frame) {
	switch frame.Type {
	case FrameAck:
		s.mu.Lock()
		ack, ok := s.acks[frame.ID]
		delete(s.acks, frame.ID)
		s.mu.Unlock()
		if !ok {
			s.logger.Debug("ack for unknown id dropped", "id", frame.ID)
			return
		}
		if err := ack(frame.Data); err != nil {
			s.reportError("ack", "", err)
		}
	case FrameEvent:
		handlers := s.handlers.lookup(frame.Event)
		if len(handlers) == 0 {
			s.logger.Debug("no handler for event", "event", frame.Event)
			return
		}
		for _, h := range handlers {
			if err := h(frame.Data); err != nil {
				s.reportError("handle", frame.Event, err)
			}
		}
	default:
		s.reportError("decode", frame.Event, fmt.Errorf("unknown frame type %q", frame.Type))
	}
}

// Close sends a close message and releases the connection.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	s.writeMu.Unlock()

	cerr := s.conn.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return errors.Join(werr, cerr)
	}
	return cerr
}

// DecodeFrame is used by peers that read raw messages.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
