package sqlmapper

// Scanner is the part of *sql.Row and *sql.Rows a codec needs.
type Scanner interface {
	Scan(dest ...any) error
}

// ICodec translates between table rows and entities.
// It is the only place that knows the layout of the table.
type ICodec[I comparable, T any] interface {
	// Table returns the table name.
	Table() string
	// Columns returns the column names, the first one is the key column.
	Columns() []string
	// Scan reads one row, the columns are in the order of Columns().
	Scan(row Scanner) (data T, err error)
	// Values returns the column values of data in the order of Columns().
	Values(data T) []any
	// Key returns the key of data.
	Key(data T) I
}

// IAutoKeyCodec is implemented by codecs whose key is assigned by the database.
type IAutoKeyCodec[I comparable, T any] interface {
	ICodec[I, T]
	// NeedsKey reports whether data has no key yet and the database must assign one.
	NeedsKey(data T) bool
	// WithKey returns data with the key assigned by the database.
	WithKey(data T, id int64) T
}
