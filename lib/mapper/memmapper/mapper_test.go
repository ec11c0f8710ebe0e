package memmapper

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
	mappertesting "github.com/ValentinKolb/dCRUD/lib/mapper/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   int
	Text string
}

func Test(t *testing.T) {
	mappertesting.RunMapperTests(t, "MemMapper", func(t *testing.T) mappertesting.Fixture[*Conn[string, note], string, note] {
		table := NewTable[string, note]()
		conn := table.Connect()
		return mappertesting.Fixture[*Conn[string, note], string, note]{
			Mapper:    New[string, note](func(n note) string { return n.Text }),
			Conn:      conn,
			NewEntity: func(n int) note { return note{ID: n, Text: "note-" + strconv.Itoa(n)} },
			Modify:    func(n note) note { n.ID += 1000; return n },
			KeyOf:     func(n note) string { return n.Text },
			Missing:   "missing",
			Close:     func() { _ = conn.Close() },
		}
	})
}

func TestWithKeyGenerator(t *testing.T) {
	var next atomic.Int64
	gen := WithKeyGenerator[int, note](
		func() int { return int(next.Add(1)) },
		func(n note, id int) note { n.ID = id; return n },
	)

	mappertesting.RunMapperTests(t, "MemMapperGeneratedKeys", func(t *testing.T) mappertesting.Fixture[*Conn[int, note], int, note] {
		table := NewTable[int, note]()
		conn := table.Connect()
		return mappertesting.Fixture[*Conn[int, note], int, note]{
			Mapper:    New[int, note](func(n note) int { return n.ID }, gen),
			Conn:      conn,
			NewEntity: func(n int) note { return note{Text: "note-" + strconv.Itoa(n)} },
			Modify:    func(n note) note { n.Text += "!"; return n },
			KeyOf:     func(n note) int { return n.ID },
			Missing:   -1,
			Close:     func() { _ = conn.Close() },
		}
	})
}

func TestCreateAssignsKey(t *testing.T) {
	table := NewTable[int, note]()
	m := New[int, note](
		func(n note) int { return n.ID },
		WithKeyGenerator[int, note](func() int { return 7 }, func(n note, id int) note { n.ID = id; return n }),
	)
	conn := table.Connect()
	defer conn.Close()

	created, err := m.Create(context.Background(), conn, note{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 7, created.ID)
	assert.Equal(t, 1, table.Len())
}

func TestConnectionRules(t *testing.T) {
	table := NewTable[string, note]()
	m := New[string, note](func(n note) string { return n.Text }, WithLatency[string, note](50*time.Millisecond))

	conn := table.Connect()
	assert.Equal(t, 1, table.OpenConnections())

	// two operations on one connection must not overlap
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.ReadList(context.Background(), conn)
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, mapper.ErrBackend)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactly one of the overlapping calls must be rejected")

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Equal(t, 0, table.OpenConnections())

	_, err := m.ReadList(context.Background(), conn)
	assert.ErrorIs(t, err, mapper.ErrBackend)
}

func TestLatencyHonoursContext(t *testing.T) {
	table := NewTable[string, note]()
	m := New[string, note](func(n note) string { return n.Text }, WithLatency[string, note](200*time.Millisecond))
	conn := table.Connect()
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.ReadByID(ctx, conn, "x")
	assert.ErrorIs(t, err, mapper.ErrBackend)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the cancelled call released the connection
	_, err = m.ReadList(context.Background(), conn)
	assert.NoError(t, err)
}
