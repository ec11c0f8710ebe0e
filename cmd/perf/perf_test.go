package perf

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/ValentinKolb/dCRUD/lib/dispatch"
	"github.com/ValentinKolb/dCRUD/lib/mapper/urlmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configure(t *testing.T, backend string) {
	perfBackend = backend
	perfKeySpread = 10
	dispatcherConfig = common.DispatcherConfig{
		Name:           "perf-test",
		Dispatchers:    3,
		AcquireTimeout: time.Second,
		RateBurst:      1,
	}
	poolConfig = common.PoolConfig{
		Driver:   "sqlite3",
		DSN:      "file:" + filepath.Join(t.TempDir(), "perf.db") + "?_busy_timeout=5000",
		Capacity: 2,
	}
}

func TestBenchmarksRun(t *testing.T) {
	for _, backend := range []string{"memory", "sql"} {
		t.Run(backend, func(t *testing.T) {
			configure(t, backend)
			ctx := context.Background()

			target, err := newTarget(ctx)
			require.NoError(t, err)
			target.Start()
			defer func() { assert.NoError(t, target.Close()) }()

			client := dispatch.NewClient[string, urlmap.UrlMap](target)
			for _, bench := range benchmarks(client) {
				getKey, iter := getKeys(bench.name)
				if bench.prepare != nil {
					iter(func(k string) { require.NoError(t, bench.prepare(ctx, k)) })
				}
				for i := 0; i < 20; i++ {
					assert.NoError(t, bench.op(ctx, getKey(i), i), bench.name)
				}
			}

			var total float64
			for _, n := range target.processed() {
				total += n
			}
			assert.Positive(t, total)
			assert.Len(t, target.processed(), 3)
		})
	}
}

func TestInvalidBackend(t *testing.T) {
	configure(t, "redis")
	_, err := newTarget(context.Background())
	assert.Error(t, err)
}

func TestGetKeys(t *testing.T) {
	perfKeySpread = 3
	getKey, iter := getKeys("x")
	assert.Equal(t, "__perf-x-0", getKey(0))
	assert.Equal(t, "__perf-x-1", getKey(4))

	var all []string
	iter(func(k string) { all = append(all, k) })
	assert.Len(t, all, 3)
}

func TestShouldSkip(t *testing.T) {
	perfSkip = []string{"create", "list"}
	assert.True(t, shouldSkip("list"))
	assert.False(t, shouldSkip("read"))
}
