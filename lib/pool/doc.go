/*
Package pool defines the contract of a bounded connection pool.

	p := bpool.New(factory, closer, bpool.WithCapacity(4))

	h, err := p.Acquire(ctx)
	if err != nil {
		// pool.ErrExhausted, pool.ErrClosed or ctx.Err()
	}
	defer h.Release()
	use(h.Conn())

A Handle is owned by exactly one holder at a time. No two outstanding handles
reference the same connection, and Stats().Outstanding returns to its previous
value once every acquired handle has been released.

Implementations:
  - bpool: generic bounded pool over a connection factory
  - sqlpool: bpool over database/sql connections
*/
package pool
