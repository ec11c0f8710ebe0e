package dispatch

import (
	"context"
	"sync"

	"github.com/ValentinKolb/dCRUD/lib/util"
)

// mailbox is the inbound channel of a dispatcher. recv() is closed once the
// mailbox is closed and every accepted envelope was received.
type mailbox[E any] interface {
	// put enqueues e, it returns errMailboxClosed after close or the ctx error
	put(ctx context.Context, e E) error
	recv() <-chan E
	close()
	len() int
}

func newMailbox[E any](size int) mailbox[E] {
	if size > 0 {
		return newBoundedMailbox[E](size)
	}
	return &queueMailbox[E]{q: util.NewQueue[E]()}
}

// --------------------------------------------------------------------------
// unbounded
// --------------------------------------------------------------------------

type queueMailbox[E any] struct {
	q *util.Queue[E]
}

func (m *queueMailbox[E]) put(_ context.Context, e E) error {
	if !m.q.Push(e) {
		return errMailboxClosed
	}
	return nil
}

func (m *queueMailbox[E]) recv() <-chan E { return m.q.Recv() }
func (m *queueMailbox[E]) close()         { m.q.Close() }
func (m *queueMailbox[E]) len() int       { return m.q.Len() }

// --------------------------------------------------------------------------
// bounded
// --------------------------------------------------------------------------

// boundedMailbox is a buffered channel, put suspends while it is full
type boundedMailbox[E any] struct {
	ch chan E

	// closing aborts suspended puts, mu guards closing ch against in-flight sends
	closing   chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func newBoundedMailbox[E any](size int) *boundedMailbox[E] {
	return &boundedMailbox[E]{
		ch:      make(chan E, size),
		closing: make(chan struct{}),
	}
}

func (m *boundedMailbox[E]) put(ctx context.Context, e E) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return errMailboxClosed
	}
	select {
	case m.ch <- e:
		return nil
	case <-m.closing:
		return errMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *boundedMailbox[E]) recv() <-chan E { return m.ch }
func (m *boundedMailbox[E]) len() int       { return len(m.ch) }

func (m *boundedMailbox[E]) close() {
	m.closeOnce.Do(func() {
		close(m.closing)
		m.mu.Lock()
		m.closed = true
		close(m.ch)
		m.mu.Unlock()
	})
}
