// Package memmapper provides an in-memory implementation of mapper.IMapper.
//
// Entities live in a Table backed by a concurrent xsync map. A Conn is a
// lightweight handle on that table that plays the role of a database
// connection: it can be opened, closed and pooled, and it refuses to run two
// operations at the same time. The latter makes overlapping use of one pooled
// connection visible as a backend error in tests.
//
// Usage:
//
//	table := memmapper.NewTable[string, Entity]()
//	m := memmapper.New[string, Entity](func(e Entity) string { return e.ID })
//
//	conn := table.Connect()
//	defer conn.Close()
//	created, err := m.Create(ctx, conn, Entity{ID: "a"})
//
// ReadList returns the entities in insertion order. Keys can be generated on
// Create with WithKeyGenerator, and WithLatency simulates a slow backend.
package memmapper
