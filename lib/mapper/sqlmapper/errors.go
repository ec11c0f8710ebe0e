package sqlmapper

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

// classify maps driver errors to the mapper error taxonomy
func classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return mapper.WrapError(mapper.RetCNotFound, op, err)
	case isUniqueViolation(err):
		return mapper.WrapError(mapper.RetCConflict, op, err)
	default:
		return mapper.WrapError(mapper.RetCBackendError, op, err)
	}
}

// isUniqueViolation reports whether err is a unique or primary key violation
// of one of the supported drivers
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}

func notFound[I any](table string, id I) error {
	return mapper.NewError(mapper.RetCNotFound, fmt.Sprintf("%s: no row with key %v", table, id))
}
