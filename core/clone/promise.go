package clone

import (
	"context"
	"sync"
)

// Promise is a value that settles once, either with a result or an error.
type Promise struct {
	once sync.Once
	done chan struct{}
	val  any
	err  error
}

func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolved returns a promise already settled with v.
func Resolved(v any) *Promise {
	p := NewPromise()
	p.Resolve(v)
	return p
}

// Rejected returns a promise already settled with err.
func Rejected(err error) *Promise {
	p := NewPromise()
	p.Reject(err)
	return p
}

// Resolve settles p with v. It reports false if p was already settled.
func (p *Promise) Resolve(v any) bool {
	return p.settle(v, nil)
}

// Reject settles p with err. It reports false if p was already settled.
func (p *Promise) Reject(err error) bool {
	return p.settle(nil, err)
}

func (p *Promise) settle(v any, err error) (ok bool) {
	p.once.Do(func() {
		p.val, p.err = v, err
		close(p.done)
		ok = true
	})
	return ok
}

// Done is closed once p is settled.
func (p *Promise) Done() <-chan struct{} { return p.done }

// Await blocks until p settles or ctx is done.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
