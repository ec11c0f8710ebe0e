package sqlpool

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/ValentinKolb/dCRUD/lib/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T, capacity int) common.PoolConfig {
	return common.PoolConfig{
		Driver:         DriverSQLite,
		DSN:            "file:" + filepath.Join(t.TempDir(), "pool.db") + "?_busy_timeout=5000",
		Capacity:       capacity,
		AcquireTimeout: 50 * time.Millisecond,
	}
}

func TestOpenSQLite(t *testing.T) {
	p, err := Open(sqliteConfig(t, 2))
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	_, err = p.DB().ExecContext(ctx, "CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	h, err := p.Acquire(ctx)
	require.NoError(t, err)
	_, err = h.Conn().ExecContext(ctx, "INSERT INTO kv VALUES ('a', '1')")
	require.NoError(t, err)
	h.Release()

	h, err = p.Acquire(ctx)
	require.NoError(t, err)
	var v string
	require.NoError(t, h.Conn().QueryRowContext(ctx, "SELECT v FROM kv WHERE k = 'a'").Scan(&v))
	assert.Equal(t, "1", v)
	h.Release()

	assert.Equal(t, 0, p.Stats().Outstanding)
}

func TestCapacity(t *testing.T) {
	p, err := Open(sqliteConfig(t, 1))
	require.NoError(t, err)
	defer p.Close()

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, pool.ErrExhausted)

	h.Release()
	assert.Equal(t, pool.Stats{Capacity: 1, Idle: 1}, p.Stats())
}

func TestClose(t *testing.T) {
	p, err := Open(sqliteConfig(t, 1))
	require.NoError(t, err)

	require.NoError(t, p.Close())
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, pool.ErrClosed)
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  common.PoolConfig
	}{
		{"unknown driver", common.PoolConfig{Driver: "postgres", DSN: "postgres://localhost"}},
		{"empty sqlite dsn", common.PoolConfig{Driver: DriverSQLite}},
		{"bad mysql dsn", common.PoolConfig{Driver: DriverMySQL, DSN: "user:pass@tcp(localhost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			assert.Error(t, err)
		})
	}
}
