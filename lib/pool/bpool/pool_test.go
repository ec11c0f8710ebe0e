package bpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCRUD/lib/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     int64
	closed atomic.Bool
}

type fakeBackend struct {
	opened atomic.Int64
	closed atomic.Int64
	fail   atomic.Bool
}

func (b *fakeBackend) open(context.Context) (*fakeConn, error) {
	if b.fail.Load() {
		return nil, errors.New("backend down")
	}
	return &fakeConn{id: b.opened.Add(1)}, nil
}

func (b *fakeBackend) close(c *fakeConn) error {
	c.closed.Store(true)
	b.closed.Add(1)
	return nil
}

func newPool(b *fakeBackend, opts ...Option) *Pool[*fakeConn] {
	return New(b.open, b.close, opts...)
}

func TestAcquireRelease(t *testing.T) {
	b := &fakeBackend{}
	p := newPool(b, WithCapacity(2))
	ctx := context.Background()

	h1, err := p.Acquire(ctx)
	require.NoError(t, err)
	h2, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.NotSame(t, h1.Conn(), h2.Conn())
	assert.Equal(t, pool.Stats{Capacity: 2, Outstanding: 2}, p.Stats())

	h1.Release()
	h1.Release() // no-op
	assert.Equal(t, pool.Stats{Capacity: 2, Outstanding: 1, Idle: 1}, p.Stats())

	// idle connection is reused
	h3, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, h1.Conn(), h3.Conn())
	assert.EqualValues(t, 2, b.opened.Load())

	h2.Release()
	h3.Release()
	assert.Equal(t, 0, p.Stats().Outstanding)
}

func TestReuseIsLIFO(t *testing.T) {
	b := &fakeBackend{}
	p := newPool(b, WithCapacity(3))
	ctx := context.Background()

	h1, _ := p.Acquire(ctx)
	h2, _ := p.Acquire(ctx)
	h1.Release()
	h2.Release()

	h, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, h2.Conn(), h.Conn())
	h.Release()
}

func TestAcquireTimeout(t *testing.T) {
	p := newPool(&fakeBackend{}, WithCapacity(1), WithAcquireTimeout(30*time.Millisecond))

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer h.Release()

	start := time.Now()
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, pool.ErrExhausted)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 1, p.Stats().Outstanding)
	assert.Equal(t, 0, p.Stats().Waiting)
}

func TestAcquireContext(t *testing.T) {
	p := newPool(&fakeBackend{}, WithCapacity(1))

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer h.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaiterGetsReleasedConnection(t *testing.T) {
	p := newPool(&fakeBackend{}, WithCapacity(1))
	ctx := context.Background()

	h, err := p.Acquire(ctx)
	require.NoError(t, err)

	got := make(chan *pool.Handle[*fakeConn])
	go func() {
		h2, err := p.Acquire(ctx)
		assert.NoError(t, err)
		got <- h2
	}()

	assert.Eventually(t, func() bool { return p.Stats().Waiting == 1 }, time.Second, time.Millisecond)
	h.Release()

	h2 := <-got
	assert.Same(t, h.Conn(), h2.Conn())
	h2.Release()
	assert.Equal(t, pool.Stats{Capacity: 1, Idle: 1}, p.Stats())
}

func TestCloseWakesWaiters(t *testing.T) {
	b := &fakeBackend{}
	p := newPool(b, WithCapacity(1))
	ctx := context.Background()

	h, err := p.Acquire(ctx)
	require.NoError(t, err)

	const waiters = 5
	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Acquire(ctx)
			errs <- err
		}()
	}
	assert.Eventually(t, func() bool { return p.Stats().Waiting == waiters }, time.Second, time.Millisecond)

	require.NoError(t, p.Close())
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, pool.ErrClosed)
	}

	// leased connection is closed on release
	assert.False(t, h.Conn().closed.Load())
	h.Release()
	assert.True(t, h.Conn().closed.Load())
	assert.Equal(t, 0, p.Stats().Outstanding)

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, pool.ErrClosed)
	assert.NoError(t, p.Close())
}

func TestCloseClosesIdle(t *testing.T) {
	b := &fakeBackend{}
	p := newPool(b, WithCapacity(3))
	ctx := context.Background()

	hs := make([]*pool.Handle[*fakeConn], 3)
	for i := range hs {
		h, err := p.Acquire(ctx)
		require.NoError(t, err)
		hs[i] = h
	}
	for _, h := range hs {
		h.Release()
	}

	require.NoError(t, p.Close())
	assert.EqualValues(t, 3, b.closed.Load())
	assert.Equal(t, 0, p.Stats().Idle)
}

func TestFactoryErrorFreesSlot(t *testing.T) {
	b := &fakeBackend{}
	p := newPool(b, WithCapacity(1), WithName("flaky"))
	ctx := context.Background()

	b.fail.Store(true)
	_, err := p.Acquire(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flaky")
	assert.Equal(t, 0, p.Stats().Outstanding)

	b.fail.Store(false)
	h, err := p.Acquire(ctx)
	require.NoError(t, err)
	h.Release()
}

func TestDiscard(t *testing.T) {
	b := &fakeBackend{}
	p := newPool(b, WithCapacity(1))

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	h.Discard()
	h.Release() // no-op

	assert.True(t, h.Conn().closed.Load())
	assert.Equal(t, pool.Stats{Capacity: 1}, p.Stats())
}

func TestNoConnectionSharedConcurrently(t *testing.T) {
	p := newPool(&fakeBackend{}, WithCapacity(4))
	ctx := context.Background()

	var inUse sync.Map
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h, err := p.Acquire(ctx)
				if !assert.NoError(t, err) {
					return
				}
				_, loaded := inUse.LoadOrStore(h.Conn().id, true)
				assert.False(t, loaded, "connection leased twice")
				assert.LessOrEqual(t, p.Stats().Outstanding, 4)
				inUse.Delete(h.Conn().id)
				h.Release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, p.Stats().Outstanding)
}

var _ pool.IPool[*fakeConn] = (*Pool[*fakeConn])(nil)
