package core

import (
	"context"
	"sync"
)

// Pending is an outcome that settles exactly once. Later Resolve or Reject
// calls are ignored.
type Pending[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
}

func NewPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// Resolved returns an already settled outcome.
func Resolved[T any](v T) *Pending[T] {
	p := NewPending[T]()
	p.Resolve(v)
	return p
}

// Rejected returns an outcome already settled with err.
func Rejected[T any](err error) *Pending[T] {
	p := NewPending[T]()
	p.Reject(err)
	return p
}

// Resolve settles p with v and reports whether this call settled it.
func (p *Pending[T]) Resolve(v T) bool {
	return p.settle(v, nil)
}

// Reject settles p with err and reports whether this call settled it.
func (p *Pending[T]) Reject(err error) bool {
	var zero T
	return p.settle(zero, err)
}

func (p *Pending[T]) settle(v T, err error) bool {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return false
	}
	p.settled = true
	p.value = v
	p.err = err
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(v, err)
	}
	return true
}

// Done is closed once p settles.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether p has a value or an error.
func (p *Pending[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Await blocks until p settles or ctx ends. Giving up on ctx does not
// cancel whatever will eventually settle p.
func (p *Pending[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then runs fn when p settles, on the goroutine that settles it. If p has
// already settled fn runs immediately.
func (p *Pending[T]) Then(fn func(T, error)) {
	p.mu.Lock()
	if !p.settled {
		p.callbacks = append(p.callbacks, fn)
		p.mu.Unlock()
		return
	}
	v, err := p.value, p.err
	p.mu.Unlock()
	fn(v, err)
}
