package sqlpool

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/ValentinKolb/dCRUD/lib/pool"
	"github.com/ValentinKolb/dCRUD/lib/pool/bpool"
	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql drivers
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// Pool leases *sql.Conn connections of one *sql.DB.
type Pool struct {
	*bpool.Pool[*sql.Conn]
	db *sql.DB
}

// Open opens the database described by cfg and returns a pool over it.
// The database is pinged once so a wrong DSN fails here and not on the first Acquire.
func Open(cfg common.PoolConfig) (*Pool, error) {
	if err := validateDSN(cfg.Driver, cfg.DSN); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	capacity := cfg.Capacity
	if capacity < 1 {
		capacity = bpool.DefaultCapacity
	}
	db.SetMaxOpenConns(capacity)
	db.SetMaxIdleConns(capacity)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	p := &Pool{db: db}
	p.Pool = bpool.New(
		func(ctx context.Context) (*sql.Conn, error) { return db.Conn(ctx) },
		func(conn *sql.Conn) error { return conn.Close() },
		bpool.WithName(cfg.Driver),
		bpool.WithCapacity(capacity),
		bpool.WithAcquireTimeout(cfg.AcquireTimeout),
	)
	return p, nil
}

// DB returns the underlying database handle, e.g. for schema setup.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the pool and then the database.
func (p *Pool) Close() error {
	err := p.Pool.Close()
	if dbErr := p.db.Close(); err == nil {
		err = dbErr
	}
	return err
}

func validateDSN(driver, dsn string) error {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			return fmt.Errorf("sqlite3: empty DSN, use a file path or a file: URI")
		}
	case DriverMySQL:
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return fmt.Errorf("mysql: invalid DSN: %w", err)
		}
	default:
		return fmt.Errorf("unsupported driver %q, must be one of %s, %s", driver, DriverSQLite, DriverMySQL)
	}
	return nil
}

var _ pool.IPool[*sql.Conn] = (*Pool)(nil)
