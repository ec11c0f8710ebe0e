// Package util provides small building blocks shared by the dispatcher and the
// tooling around it.
//
// The package contains:
//   - queue: an unbounded multi-producer single-consumer queue, used as the
//     dispatcher mailbox when no queue size is configured
//   - hash: FNV-1a hashing of keys, used to route envelopes to dispatchers
//   - stats: descriptive statistics to rate how evenly load is spread over
//     a set of dispatchers
//
// Queue guarantees:
//
//   - Unbounded size: the queue grows as needed, limited only by available memory
//   - Thread-safe writes: any number of goroutines may Push() concurrently
//   - Single consumer: values are delivered by one internal goroutine on Recv()
//   - Single producer FIFO: values pushed by one goroutine arrive in push order.
//     Under concurrent producers the order is the order in which the pushes
//     linked their nodes, not the order in which they started.
//   - No loss on close: every value for which Push() returned true is delivered
//     before the Recv() channel is closed.
package util
