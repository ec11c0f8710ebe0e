package dispatch

import (
	"context"
)

// Client offers blocking CRUD calls on top of a Submitter. Each call creates
// an envelope, submits it and awaits the reply. If ctx ends first, the reply
// is dropped and ctx.Err() is returned, the operation itself may still run.
type Client[I comparable, T any] struct {
	s Submitter[I, T]
}

// NewClient creates a client submitting to s.
func NewClient[I comparable, T any](s Submitter[I, T]) *Client[I, T] {
	return &Client[I, T]{s: s}
}

// ReadList returns all entities.
func (c *Client[I, T]) ReadList(ctx context.Context) ([]T, error) {
	cmd, reply := NewReadList[I, T]()
	return call[I, T](ctx, c.s, cmd, reply)
}

// ReadByID returns the entity with key id.
func (c *Client[I, T]) ReadByID(ctx context.Context, id I) (T, error) {
	cmd, reply := NewReadByID[I, T](id)
	return call[I, T](ctx, c.s, cmd, reply)
}

// Create persists data and returns the stored entity.
func (c *Client[I, T]) Create(ctx context.Context, data T) (T, error) {
	cmd, reply := NewCreate[I, T](data)
	return call[I, T](ctx, c.s, cmd, reply)
}

// Update replaces the stored entity and returns the result.
func (c *Client[I, T]) Update(ctx context.Context, data T) (T, error) {
	cmd, reply := NewUpdate[I, T](data)
	return call[I, T](ctx, c.s, cmd, reply)
}

// DeleteByID deletes the entity with key id and returns its last state.
func (c *Client[I, T]) DeleteByID(ctx context.Context, id I) (T, error) {
	cmd, reply := NewDeleteByID[I, T](id)
	return call[I, T](ctx, c.s, cmd, reply)
}

func call[I comparable, T any, V any](ctx context.Context, s Submitter[I, T], cmd Command[I, T], reply *ReplyReceiver[V]) (V, error) {
	if err := s.Submit(ctx, cmd); err != nil {
		var zero V
		return zero, err
	}
	return reply.Await(ctx)
}
