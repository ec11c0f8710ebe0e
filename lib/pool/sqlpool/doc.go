// Package sqlpool provides a pool.IPool of *sql.Conn for the sqlite3 and mysql drivers.
//
// database/sql already pools connections internally, but it never bounds how
// long a caller waits and it does not hand out exclusive leases. The pool
// checks out one *sql.Conn per lease through bpool, so a caller owns the
// connection (and its transactions) until it releases the handle.
package sqlpool
