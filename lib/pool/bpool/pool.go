package bpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/ValentinKolb/dCRUD/lib/pool"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger(common.LoggerPool)

// DefaultCapacity is used when no capacity is configured
const DefaultCapacity = 4

type config struct {
	name           string
	capacity       int
	acquireTimeout time.Duration
}

// Option configures a pool.
type Option func(*config)

// WithCapacity sets the maximum number of leased connections (values < 1 are ignored).
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithAcquireTimeout bounds how long Acquire waits for a free connection.
// Zero waits until a connection is free, the pool is closed or the context ends.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *config) {
		c.acquireTimeout = d
	}
}

// WithName sets the name used in log messages.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// Pool is a bounded pool of connections of type C. Connections are created
// lazily by the factory and reused in LIFO order.
type Pool[C any] struct {
	config
	factory func(ctx context.Context) (C, error)
	closer  func(C) error

	// one token per leased connection
	slots chan struct{}

	mu     sync.Mutex
	idle   []C
	closed bool
	done   chan struct{}

	outstanding atomic.Int64
	waiting     atomic.Int64
}

// New creates a pool. factory opens a new connection, closer closes one (may be nil).
func New[C any](factory func(ctx context.Context) (C, error), closer func(C) error, opts ...Option) *Pool[C] {
	cfg := config{name: "pool", capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	if closer == nil {
		closer = func(C) error { return nil }
	}

	return &Pool[C]{
		config:  cfg,
		factory: factory,
		closer:  closer,
		slots:   make(chan struct{}, cfg.capacity),
		idle:    make([]C, 0, cfg.capacity),
		done:    make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see pool/interface.go)
// --------------------------------------------------------------------------

func (p *Pool[C]) Acquire(ctx context.Context) (*pool.Handle[C], error) {
	if err := p.waitSlot(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, pool.ErrClosed
	}
	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		var zero C
		p.idle[n-1] = zero
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return p.lease(conn), nil
	}
	p.mu.Unlock()

	conn, err := p.factory(ctx)
	if err != nil {
		<-p.slots
		return nil, fmt.Errorf("%s: open connection: %w", p.name, err)
	}
	log.Debugf("%s: opened new connection", p.name)
	return p.lease(conn), nil
}

func (p *Pool[C]) Stats() pool.Stats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()

	return pool.Stats{
		Capacity:    p.capacity,
		Outstanding: int(p.outstanding.Load()),
		Idle:        idle,
		Waiting:     int(p.waiting.Load()),
	}
}

func (p *Pool[C]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, conn := range idle {
		if err := p.closer(conn); err != nil {
			errs = append(errs, err)
		}
	}
	log.Infof("%s: closed (%d idle connections, %d leased)", p.name, len(idle), p.outstanding.Load())
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// waitSlot reserves a capacity token
func (p *Pool[C]) waitSlot(ctx context.Context) error {
	// fast path, also makes sure a closed pool never hands out a slot
	select {
	case <-p.done:
		return pool.ErrClosed
	default:
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	default:
	}

	var timeout <-chan time.Time
	if p.acquireTimeout > 0 {
		timer := time.NewTimer(p.acquireTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	p.waiting.Add(1)
	defer p.waiting.Add(-1)

	select {
	case p.slots <- struct{}{}:
		return nil
	case <-p.done:
		return pool.ErrClosed
	case <-timeout:
		log.Debugf("%s: acquire timed out after %s", p.name, p.acquireTimeout)
		return pool.ErrExhausted
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool[C]) lease(conn C) *pool.Handle[C] {
	p.outstanding.Add(1)
	return pool.NewHandle(conn, p.release, p.discard)
}

func (p *Pool[C]) release(conn C) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.closeConn(conn)
	} else {
		p.idle = append(p.idle, conn)
		p.mu.Unlock()
	}
	p.outstanding.Add(-1)
	<-p.slots
}

func (p *Pool[C]) discard(conn C) {
	p.closeConn(conn)
	p.outstanding.Add(-1)
	<-p.slots
}

func (p *Pool[C]) closeConn(conn C) {
	if err := p.closer(conn); err != nil {
		log.Warningf("%s: closing connection failed: %v", p.name, err)
	}
}
