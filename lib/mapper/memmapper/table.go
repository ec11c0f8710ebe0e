package memmapper

import (
	"sync/atomic"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/puzpuzpuz/xsync/v3"
)

// row is a stored entity plus its insertion sequence number
type row[T any] struct {
	seq  uint64
	data T
}

// Table is the shared in-memory storage behind all connections of a mapper.
type Table[I comparable, T any] struct {
	rows     *xsync.MapOf[I, row[T]]
	seq      atomic.Uint64
	openConn atomic.Int64
}

// NewTable creates an empty table.
func NewTable[I comparable, T any]() *Table[I, T] {
	return &Table[I, T]{
		rows: xsync.NewMapOf[I, row[T]](),
	}
}

// Connect opens a new connection on the table.
func (t *Table[I, T]) Connect() *Conn[I, T] {
	t.openConn.Add(1)
	return &Conn[I, T]{table: t}
}

// Len returns the number of stored entities.
func (t *Table[I, T]) Len() int {
	return t.rows.Size()
}

// OpenConnections returns the number of connections that were not closed yet.
func (t *Table[I, T]) OpenConnections() int {
	return int(t.openConn.Load())
}

// nextSeq returns the next insertion sequence number
func (t *Table[I, T]) nextSeq() uint64 {
	return t.seq.Add(1)
}

// Conn is a connection to a Table. A connection may only run one operation
// at a time, overlapping use is reported as a backend error.
type Conn[I comparable, T any] struct {
	table  *Table[I, T]
	busy   atomic.Bool
	closed atomic.Bool
}

// Close closes the connection. Closing twice is a no-op.
func (c *Conn[I, T]) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.table.openConn.Add(-1)
	}
	return nil
}

// begin marks the connection busy, end must be called when the operation is done
func (c *Conn[I, T]) begin() (*Table[I, T], error) {
	if c == nil || c.table == nil {
		return nil, mapper.NewError(mapper.RetCBackendError, "nil connection")
	}
	if c.closed.Load() {
		return nil, mapper.NewError(mapper.RetCBackendError, "connection is closed")
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, mapper.NewError(mapper.RetCBackendError, "connection is used concurrently")
	}
	return c.table, nil
}

func (c *Conn[I, T]) end() {
	c.busy.Store(false)
}
