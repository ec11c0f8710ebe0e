package sqlmapper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
)

// statements holds the SQL generated once from the codec
type statements struct {
	selectAll  string
	selectByID string
	exists     string
	insert     string
	insertAuto string
	update     string
	deleteByID string
}

type mapperImpl[I comparable, T any] struct {
	codec ICodec[I, T]
	auto  IAutoKeyCodec[I, T]
	stmt  statements
}

// New creates a mapper for the table described by codec.
// The generated statements use '?' placeholders (sqlite3, mysql).
func New[I comparable, T any](codec ICodec[I, T]) mapper.IMapper[*sql.Conn, I, T] {
	m := &mapperImpl[I, T]{codec: codec}
	if auto, ok := codec.(IAutoKeyCodec[I, T]); ok {
		m.auto = auto
	}
	m.stmt = buildStatements(codec.Table(), codec.Columns())
	return m
}

func buildStatements(table string, columns []string) statements {
	key := columns[0]
	cols := strings.Join(columns, ", ")

	sets := make([]string, 0, len(columns)-1)
	for _, c := range columns[1:] {
		sets = append(sets, c+" = ?")
	}

	var update string
	if len(sets) > 0 {
		update = fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, strings.Join(sets, ", "), key)
	}

	return statements{
		selectAll:  fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", cols, table, key),
		selectByID: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", cols, table, key),
		exists:     fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", table, key),
		insert:     fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, cols, placeholders(len(columns))),
		insertAuto: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns[1:], ", "), placeholders(len(columns)-1)),
		update:     update,
		deleteByID: fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, key),
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// --------------------------------------------------------------------------
// Interface Methods (docu see mapper/interface.go)
// --------------------------------------------------------------------------

func (m *mapperImpl[I, T]) ReadList(ctx context.Context, conn *sql.Conn) ([]T, error) {
	rows, err := conn.QueryContext(ctx, m.stmt.selectAll)
	if err != nil {
		return nil, classify(err, "read list")
	}
	defer rows.Close()

	list := make([]T, 0)
	for rows.Next() {
		data, err := m.codec.Scan(rows)
		if err != nil {
			return nil, classify(err, "scan row")
		}
		list = append(list, data)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "read list")
	}
	return list, nil
}

func (m *mapperImpl[I, T]) ReadByID(ctx context.Context, conn *sql.Conn, id I) (T, error) {
	return m.readByID(ctx, conn, id)
}

func (m *mapperImpl[I, T]) Create(ctx context.Context, conn *sql.Conn, data T) (T, error) {
	var zero T

	var created T
	err := m.inTx(ctx, conn, func(tx *sql.Tx) error {
		if m.auto != nil && m.auto.NeedsKey(data) {
			res, err := tx.ExecContext(ctx, m.stmt.insertAuto, m.codec.Values(data)[1:]...)
			if err != nil {
				return classify(err, "create")
			}
			id, err := res.LastInsertId()
			if err != nil {
				return classify(err, "create")
			}
			data = m.auto.WithKey(data, id)
		} else if _, err := tx.ExecContext(ctx, m.stmt.insert, m.codec.Values(data)...); err != nil {
			return classify(err, "create")
		}

		// read back what the database stored (defaults, normalisation)
		var err error
		created, err = m.codec.Scan(tx.QueryRowContext(ctx, m.stmt.selectByID, m.codec.Key(data)))
		return classify(err, "create")
	})
	if err != nil {
		return zero, err
	}
	return created, nil
}

func (m *mapperImpl[I, T]) Update(ctx context.Context, conn *sql.Conn, data T) (T, error) {
	var zero T
	id := m.codec.Key(data)

	var updated T
	err := m.inTx(ctx, conn, func(tx *sql.Tx) error {
		// check existence explicitly: mysql reports 0 affected rows for no-op updates
		var one int
		if err := tx.QueryRowContext(ctx, m.stmt.exists, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound(m.codec.Table(), id)
			}
			return classify(err, "update")
		}

		// a table without value columns has nothing to update
		if m.stmt.update != "" {
			values := m.codec.Values(data)
			args := append(values[1:len(values):len(values)], values[0])
			if _, err := tx.ExecContext(ctx, m.stmt.update, args...); err != nil {
				return classify(err, "update")
			}
		}

		var err error
		updated, err = m.codec.Scan(tx.QueryRowContext(ctx, m.stmt.selectByID, id))
		return classify(err, "update")
	})
	if err != nil {
		return zero, err
	}
	return updated, nil
}

func (m *mapperImpl[I, T]) DeleteByID(ctx context.Context, conn *sql.Conn, id I) (T, error) {
	var zero T

	var deleted T
	err := m.inTx(ctx, conn, func(tx *sql.Tx) error {
		var err error
		deleted, err = m.codec.Scan(tx.QueryRowContext(ctx, m.stmt.selectByID, id))
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(m.codec.Table(), id)
		}
		if err != nil {
			return classify(err, "delete")
		}

		if _, err := tx.ExecContext(ctx, m.stmt.deleteByID, id); err != nil {
			return classify(err, "delete")
		}
		return nil
	})
	if err != nil {
		return zero, err
	}
	return deleted, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (m *mapperImpl[I, T]) readByID(ctx context.Context, conn *sql.Conn, id I) (T, error) {
	var zero T
	data, err := m.codec.Scan(conn.QueryRowContext(ctx, m.stmt.selectByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, notFound(m.codec.Table(), id)
	}
	if err != nil {
		return zero, classify(err, "read")
	}
	return data, nil
}

// inTx runs fn in a transaction on conn, fn's error aborts the transaction
func (m *mapperImpl[I, T]) inTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit")
	}
	return nil
}
