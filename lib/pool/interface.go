package pool

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Acquire once the pool has been closed.
	ErrClosed = errors.New("pool: closed")
	// ErrExhausted is returned by Acquire when no connection became free within the acquire timeout.
	ErrExhausted = errors.New("pool: exhausted, acquire timed out")
)

// IPool hands out exclusive leases on connections of type C.
type IPool[C any] interface {
	// Acquire checks out a connection. It suspends while all connections are
	// leased and fails with ErrExhausted, ErrClosed or the context error.
	// The returned handle must be released exactly once (further calls are no-ops).
	Acquire(ctx context.Context) (*Handle[C], error)

	// Stats returns a snapshot of the pool's usage.
	Stats() Stats

	// Close permanently closes the pool. Waiting and future Acquire calls
	// fail with ErrClosed, leased connections are closed when released.
	Close() error
}

// Stats is a snapshot of a pool's usage.
type Stats struct {
	Capacity    int
	Outstanding int
	Idle        int
	Waiting     int
}

// --------------------------------------------------------------------------
// Handle
// --------------------------------------------------------------------------

// Handle is an exclusively owned lease on one pooled connection.
type Handle[C any] struct {
	conn    C
	once    sync.Once
	release func(C)
	discard func(C)
}

// NewHandle is used by pool implementations to hand out conn.
// release returns the connection for reuse, discard destroys it.
func NewHandle[C any](conn C, release func(C), discard func(C)) *Handle[C] {
	return &Handle[C]{conn: conn, release: release, discard: discard}
}

// Conn returns the leased connection. It must not be used after Release or Discard.
func (h *Handle[C]) Conn() C {
	return h.conn
}

// Release returns the connection to the pool. Only the first call of Release
// or Discard has an effect.
func (h *Handle[C]) Release() {
	h.once.Do(func() {
		if h.release != nil {
			h.release(h.conn)
		}
	})
}

// Discard releases the lease and destroys the connection instead of reusing it.
func (h *Handle[C]) Discard() {
	h.once.Do(func() {
		if h.discard != nil {
			h.discard(h.conn)
		} else if h.release != nil {
			h.release(h.conn)
		}
	})
}
