// Package dispatch routes CRUD requests through a single dispatch point that
// owns the pool interaction, so callers never check out connections themselves.
//
// Key Components:
//
//   - Reply Slot: NewReply returns the two halves of a single-use, single-value
//     channel. The ReplySender never blocks and is consumed by the first Resolve
//     or Drop. The ReplyReceiver awaits the value, a receiver that stops waiting
//     (ctx expiry or Drop) turns the later Resolve into a no-op. A sender dropped
//     without a value is observed as mapper.ErrSenderDropped.
//
//   - Command Envelope: a closed set of variants (ReadList, ReadByID, Create,
//     Update, DeleteByID) carrying the operation input and the sender half of the
//     reply. The NewXxx constructors return the envelope and the receiver half.
//
//   - Dispatcher: a long-lived loop owning a mailbox (bounded channel or
//     unbounded MPSC queue). For every envelope it leases one connection from
//     the pool, runs the mapper operation, resolves the reply and releases the
//     connection before it takes the next envelope. Mapper errors (NotFound,
//     Conflict, BackendError) and acquire timeouts are delivered through the
//     reply. A closed pool stops the loop, every envelope that is still queued
//     or submitted later is resolved with PoolClosed.
//
//   - Router: N dispatchers sharing one pool. Commands addressing a key are
//     hashed to a fixed dispatcher, which keeps the per-key order.
//
//   - Client: blocking typed calls on top of a Dispatcher or Router.
//
// Example:
//
//	d := dispatch.New(urlmap.NewMapper(), sqlPool, cfg)
//	d.Start()
//	defer d.Close()
//
//	cmd, reply := dispatch.NewReadByID[string, urlmap.UrlMap]("gh")
//	if err := d.Submit(ctx, cmd); err != nil {
//		return err
//	}
//	m, err := reply.Await(ctx)
//
// Every dispatcher keeps its metrics (operation counters by result, acquire and
// execution latency histograms, queue length) in its own VictoriaMetrics set,
// see WriteMetrics.
package dispatch
