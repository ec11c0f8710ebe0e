package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
)

// slot is the shared state of one reply. It is written once (resolve or
// sender drop) and read after done is closed.
type slot[V any] struct {
	value V
	err   error

	settled atomic.Bool
	done    chan struct{}

	gone atomic.Bool
}

// ReplySender is the producing half of a single-use reply slot.
type ReplySender[V any] struct {
	s *slot[V]
}

// ReplyReceiver is the consuming half of a single-use reply slot.
type ReplyReceiver[V any] struct {
	s *slot[V]
}

// NewReply creates a reply slot and returns its two halves.
func NewReply[V any]() (*ReplySender[V], *ReplyReceiver[V]) {
	s := &slot[V]{done: make(chan struct{})}
	return &ReplySender[V]{s: s}, &ReplyReceiver[V]{s: s}
}

// Resolve delivers the result. It never blocks. Only the first call of
// Resolve or Drop has an effect, Resolve returns false if it had none or if
// the receiver was already dropped.
func (r *ReplySender[V]) Resolve(value V, err error) bool {
	if !r.s.settled.CompareAndSwap(false, true) {
		return false
	}
	r.s.value, r.s.err = value, err
	close(r.s.done)
	return !r.s.gone.Load()
}

// Drop abandons the reply without a result, the receiver observes
// mapper.ErrSenderDropped. It is a no-op after Resolve.
func (r *ReplySender[V]) Drop() {
	if r.s.settled.CompareAndSwap(false, true) {
		r.s.err = mapper.ErrSenderDropped
		close(r.s.done)
	}
}

// Settled reports whether the reply was resolved or dropped by the sender.
func (r *ReplySender[V]) Settled() bool {
	return r.s.settled.Load()
}

// ReceiverGone reports whether the receiver was dropped.
func (r *ReplySender[V]) ReceiverGone() bool {
	return r.s.gone.Load()
}

// Await suspends until the reply is settled or ctx ends. If ctx ends first the
// receiver is dropped and ctx.Err() is returned.
func (r *ReplyReceiver[V]) Await(ctx context.Context) (V, error) {
	// a settled reply wins over an expired ctx
	select {
	case <-r.s.done:
		return r.s.value, r.s.err
	default:
	}

	select {
	case <-r.s.done:
		return r.s.value, r.s.err
	case <-ctx.Done():
		r.Drop()
		var zero V
		return zero, ctx.Err()
	}
}

// Drop tells the sender that nobody waits for the result anymore.
func (r *ReplyReceiver[V]) Drop() {
	r.s.gone.Store(true)
}

// Done is closed once the reply is settled.
func (r *ReplyReceiver[V]) Done() <-chan struct{} {
	return r.s.done
}
