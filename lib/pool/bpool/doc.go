// Package bpool implements pool.IPool for any connection type.
//
// The pool holds at most Capacity leased connections. Connections are created
// on demand by a factory and kept idle after release, the most recently
// released connection is handed out first. Acquire suspends while the pool is
// exhausted and gives up with pool.ErrExhausted after the acquire timeout.
// Close wakes all waiters with pool.ErrClosed and closes idle connections,
// leased connections are closed when their handle is released.
package bpool
