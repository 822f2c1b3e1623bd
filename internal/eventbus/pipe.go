package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Pipe is an in-memory Channel. Emitted events are recorded as Requests
// which the owner answers with Reply, in any order; Push delivers
// unsolicited events. Replies and pushes are dispatched one at a time.
type Pipe struct {
	handlers handlerSet

	dispatchMu sync.Mutex

	mu       sync.Mutex
	requests []*Request
	emitErr  error
	closed   bool
}

// Request is one event emitted through a Pipe.
type Request struct {
	Event   string
	Payload json.RawMessage

	pipe *Pipe
	ack  AckFunc
}

func NewPipe() *Pipe {
	return &Pipe{}
}

// FailEmits makes every following Emit return err. A nil err restores normal behaviour.
func (p *Pipe) FailEmits(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitErr = err
}

func (p *Pipe) Emit(event string, payload any, ack AckFunc) error {
	data, err := EncodePayload(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.emitErr != nil {
		return p.emitErr
	}
	p.requests = append(p.requests, &Request{Event: event, Payload: data, pipe: p, ack: ack})
	return nil
}

func (p *Pipe) On(event string, h Handler) Subscription {
	id := p.handlers.add(event, h)
	return &subscription{remove: func() { p.handlers.remove(event, id) }}
}

// Requests returns a snapshot of everything emitted so far.
func (p *Pipe) Requests() []*Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// TakeRequests returns and forgets everything emitted so far.
func (p *Pipe) TakeRequests() []*Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.requests
	p.requests = nil
	return out
}

// Handlers reports how many handlers are registered for event.
func (p *Pipe) Handlers(event string) int {
	return len(p.handlers.lookup(event))
}

// Push delivers an unsolicited event to every handler registered for it.
// The first handler error is returned.
func (p *Pipe) Push(event string, data any) error {
	raw, err := EncodePayload(data)
	if err != nil {
		return fmt.Errorf("encode %s push: %w", event, err)
	}

	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	var first error
	for _, h := range p.handlers.lookup(event) {
		if err := h(raw); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Reply delivers data to the request's ack callback. Replying twice
// invokes the callback twice; deduplication is the receiver's job.
func (r *Request) Reply(data any) error {
	if r.ack == nil {
		return fmt.Errorf("event %s was emitted without an ack", r.Event)
	}
	raw, err := EncodePayload(data)
	if err != nil {
		return fmt.Errorf("encode %s reply: %w", r.Event, err)
	}

	r.pipe.dispatchMu.Lock()
	defer r.pipe.dispatchMu.Unlock()
	return r.ack(raw)
}

// Decode unmarshals the request payload.
func (r *Request) Decode(v any) error {
	return json.Unmarshal(r.Payload, v)
}

// WantsAck reports whether the request was emitted with a callback.
func (r *Request) WantsAck() bool {
	return r.ack != nil
}
