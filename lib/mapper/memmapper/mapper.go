package memmapper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
)

type mapperImpl[I comparable, T any] struct {
	keyOf   func(T) I
	newKey  func() I
	withKey func(T, I) T
	latency time.Duration
}

// Option configures an in-memory mapper.
type Option[I comparable, T any] func(*mapperImpl[I, T])

// WithKeyGenerator makes Create assign a key from newKey to entities whose key
// is the zero value. withKey returns the entity with the key set.
func WithKeyGenerator[I comparable, T any](newKey func() I, withKey func(T, I) T) Option[I, T] {
	return func(m *mapperImpl[I, T]) {
		m.newKey = newKey
		m.withKey = withKey
	}
}

// WithLatency delays every operation, this simulates a slow backend.
func WithLatency[I comparable, T any](d time.Duration) Option[I, T] {
	return func(m *mapperImpl[I, T]) {
		m.latency = d
	}
}

// New creates an in-memory mapper. keyOf extracts the key of an entity.
func New[I comparable, T any](keyOf func(T) I, opts ...Option[I, T]) mapper.IMapper[*Conn[I, T], I, T] {
	m := &mapperImpl[I, T]{keyOf: keyOf}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// --------------------------------------------------------------------------
// Interface Methods (docu see mapper/interface.go)
// --------------------------------------------------------------------------

func (m *mapperImpl[I, T]) ReadList(ctx context.Context, conn *Conn[I, T]) ([]T, error) {
	table, err := m.enter(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer conn.end()

	rows := make([]row[T], 0, table.Len())
	table.rows.Range(func(_ I, r row[T]) bool {
		rows = append(rows, r)
		return true
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	list := make([]T, len(rows))
	for i, r := range rows {
		list[i] = r.data
	}
	return list, nil
}

func (m *mapperImpl[I, T]) ReadByID(ctx context.Context, conn *Conn[I, T], id I) (T, error) {
	var zero T
	table, err := m.enter(ctx, conn)
	if err != nil {
		return zero, err
	}
	defer conn.end()

	r, ok := table.rows.Load(id)
	if !ok {
		return zero, notFound(id)
	}
	return r.data, nil
}

func (m *mapperImpl[I, T]) Create(ctx context.Context, conn *Conn[I, T], data T) (T, error) {
	var zero T
	table, err := m.enter(ctx, conn)
	if err != nil {
		return zero, err
	}
	defer conn.end()

	var zeroKey I
	key := m.keyOf(data)
	if key == zeroKey && m.newKey != nil {
		key = m.newKey()
		data = m.withKey(data, key)
	}

	if _, loaded := table.rows.LoadOrStore(key, row[T]{seq: table.nextSeq(), data: data}); loaded {
		return zero, mapper.NewError(mapper.RetCConflict, fmt.Sprintf("key %v already exists", key))
	}
	return data, nil
}

func (m *mapperImpl[I, T]) Update(ctx context.Context, conn *Conn[I, T], data T) (T, error) {
	var zero T
	table, err := m.enter(ctx, conn)
	if err != nil {
		return zero, err
	}
	defer conn.end()

	key := m.keyOf(data)
	_, ok := table.rows.Compute(key, func(old row[T], loaded bool) (row[T], bool) {
		if !loaded {
			// delete=true keeps the absent key absent
			return old, true
		}
		return row[T]{seq: old.seq, data: data}, false
	})
	if !ok {
		return zero, notFound(key)
	}
	return data, nil
}

func (m *mapperImpl[I, T]) DeleteByID(ctx context.Context, conn *Conn[I, T], id I) (T, error) {
	var zero T
	table, err := m.enter(ctx, conn)
	if err != nil {
		return zero, err
	}
	defer conn.end()

	r, loaded := table.rows.LoadAndDelete(id)
	if !loaded {
		return zero, notFound(id)
	}
	return r.data, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// enter claims the connection and applies the simulated latency
func (m *mapperImpl[I, T]) enter(ctx context.Context, conn *Conn[I, T]) (*Table[I, T], error) {
	table, err := conn.begin()
	if err != nil {
		return nil, err
	}
	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			conn.end()
			return nil, mapper.WrapError(mapper.RetCBackendError, "operation cancelled", ctx.Err())
		}
	}
	return table, nil
}

func notFound[I any](id I) error {
	return mapper.NewError(mapper.RetCNotFound, fmt.Sprintf("no entity with key %v", id))
}
