package dispatch

import (
	"context"
	"sync"
)

// Deferred is a handler result whose value is not yet available. The runtime
// resolves it by blocking wait before building the response, so returning one
// does not introduce concurrency at the protocol layer — it only lets the
// handler body return while background work finishes.
type Deferred struct {
	done chan struct{}

	once  sync.Once
	value any
	err   error
}

// NewDeferred creates an unresolved Deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns a Deferred resolved with its
// outcome.
func Go(fn func() (any, error)) *Deferred {
	d := NewDeferred()
	go func() {
		d.Resolve(fn())
	}()
	return d
}

// Resolve supplies the value. Only the first call has effect.
func (d *Deferred) Resolve(value any, err error) {
	d.once.Do(func() {
		d.value = value
		d.err = err
		close(d.done)
	})
}

// Await blocks until the value is resolved or ctx is done.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
