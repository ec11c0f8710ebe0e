package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, f *fixture, n int, opts ...RouterOption[string, item]) *Router[memConn, string, item] {
	cfg := testConfig(t)
	cfg.Name = "router"
	cfg.Dispatchers = n
	r := NewRouter[memConn, string, item](f.mapper, f.pool, cfg, opts...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRouterKeyRouting(t *testing.T) {
	f := newFixture(t, 4)
	r := newRouter(t, f, 4, WithSeed[string, item](42), WithRouteKey[string, item](func(i item) string { return i.Key }))
	require.Len(t, r.Dispatchers(), 4)
	assert.Equal(t, "router-0", r.Dispatchers()[0].Name())

	used := make(map[int]bool)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		read, _ := NewReadByID[string, item](key)
		del, _ := NewDeleteByID[string, item](key)
		create, _ := NewCreate[string, item](item{Key: key})
		update, _ := NewUpdate[string, item](item{Key: key, Value: 1})

		idx := r.route(read)
		assert.Equal(t, idx, r.route(read), "routing must be deterministic")
		assert.Equal(t, idx, r.route(del))
		assert.Equal(t, idx, r.route(create))
		assert.Equal(t, idx, r.route(update))
		used[idx] = true
	}
	assert.Greater(t, len(used), 1, "keys should spread over the dispatchers")
}

func TestRouterRoundRobin(t *testing.T) {
	f := newFixture(t, 3)
	r := newRouter(t, f, 3)

	seen := make(map[int]int)
	for i := 0; i < 30; i++ {
		list, _ := NewReadList[string, item]()
		seen[r.route(list)]++
	}
	assert.Equal(t, map[int]int{0: 10, 1: 10, 2: 10}, seen)

	// without a route key creates are not keyed
	create, _ := NewCreate[string, item](item{Key: "a"})
	first := r.route(create)
	assert.NotEqual(t, first, r.route(create))
}

func TestRouterPerKeyOrder(t *testing.T) {
	f := newFixture(t, 2)
	r := newRouter(t, f, 4, WithRouteKey[string, item](func(i item) string { return i.Key }))
	r.Start()
	ctx := context.Background()

	// create, update and delete of one key are submitted without waiting,
	// they only succeed if they are processed in submission order
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)

			create, createRx := NewCreate[string, item](item{Key: key})
			update, updateRx := NewUpdate[string, item](item{Key: key, Value: 1})
			del, delRx := NewDeleteByID[string, item](key)
			for _, cmd := range []Command[string, item]{create, update, del} {
				assert.NoError(t, r.Submit(ctx, cmd))
			}

			_, err := await(t, createRx)
			assert.NoError(t, err)
			_, err = await(t, updateRx)
			assert.NoError(t, err)
			deleted, err := await(t, delRx)
			assert.NoError(t, err)
			assert.Equal(t, 1, deleted.Value)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, f.table.Len())
	assert.Equal(t, 0, f.pool.Stats().Outstanding)
	assert.LessOrEqual(t, f.table.OpenConnections(), 2)
}

func TestRouterSharedPoolSizeOne(t *testing.T) {
	f := newFixture(t, 1)
	r := newRouter(t, f, 2)
	r.Start()
	c := NewClient[string, item](r)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Create(context.Background(), item{Key: fmt.Sprint(i), Value: i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := c.ReadList(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 20)
	assert.Equal(t, 1, f.table.OpenConnections())
}

func TestRouterPoolClosed(t *testing.T) {
	f := newFixture(t, 1)
	r := newRouter(t, f, 2)
	r.Start()
	c := NewClient[string, item](r)

	require.NoError(t, f.pool.Close())
	for i := 0; i < 4; i++ {
		_, err := c.ReadByID(context.Background(), fmt.Sprint(i))
		assert.ErrorIs(t, err, mapper.ErrPoolClosed)
	}
}

func TestRouterCloseAndMetrics(t *testing.T) {
	f := newFixture(t, 1)
	r := newRouter(t, f, 2)
	r.Start()
	c := NewClient[string, item](r)

	_, err := c.ReadList(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	r.WriteMetrics(&buf)
	assert.Contains(t, buf.String(), `dispatcher="router-0"`)
	assert.Contains(t, buf.String(), `dispatcher="router-1"`)

	require.NoError(t, r.Close())
	_, err = c.ReadList(context.Background())
	assert.ErrorIs(t, err, mapper.ErrDispatcherClosed)
	assert.Error(t, r.Submit(context.Background(), nil))
}
