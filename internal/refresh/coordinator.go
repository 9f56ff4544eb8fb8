package refresh

import (
	"context"
	"sync"
)

// Coordinator serializes refresh calls. It never retries internally; the
// pipeline's auth budget owns the single-retry decision.
type Coordinator struct {
	exchange func(ctx context.Context) error

	// Observability callbacks, optional.
	onResult    func(err error)
	onCoalesced func()

	mu       sync.Mutex
	inflight *call
}

type call struct {
	done chan struct{}
	err  error
}

// New creates a Coordinator around exchange, the function that performs one
// refresh round trip.
func New(exchange func(ctx context.Context) error, onResult func(error), onCoalesced func()) *Coordinator {
	return &Coordinator{
		exchange:    exchange,
		onResult:    onResult,
		onCoalesced: onCoalesced,
	}
}

// Refresh renews the access credential, returning only success or failure.
// A caller arriving while a refresh is in flight waits for that refresh and
// shares its outcome instead of starting another one.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if cl := c.inflight; cl != nil {
		c.mu.Unlock()
		if c.onCoalesced != nil {
			c.onCoalesced()
		}
		select {
		case <-cl.done:
			return cl.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	cl := &call{done: make(chan struct{})}
	c.inflight = cl
	c.mu.Unlock()

	cl.err = c.exchange(ctx)

	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
	close(cl.done)

	if c.onResult != nil {
		c.onResult(cl.err)
	}
	return cl.err
}
