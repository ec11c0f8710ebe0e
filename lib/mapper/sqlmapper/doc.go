// Package sqlmapper implements mapper.IMapper on top of database/sql.
//
// The mapper works on a *sql.Conn that the caller checked out, it never opens
// or closes connections. The table layout is described by an ICodec, from
// which the mapper generates its statements once:
//
//	SELECT <cols> FROM <table> ORDER BY <key>
//	SELECT <cols> FROM <table> WHERE <key> = ?
//	INSERT INTO <table> (<cols>) VALUES (?, ...)
//	UPDATE <table> SET <col> = ?, ... WHERE <key> = ?
//	DELETE FROM <table> WHERE <key> = ?
//
// Update and DeleteByID run in a transaction on the given connection so the
// existence check and the write see the same state.
//
// Codecs that implement IAutoKeyCodec let the database assign the key: Create
// omits the key column and reads the generated id via LastInsertId.
//
// Errors are classified into the mapper taxonomy:
//   - sql.ErrNoRows                             -> NotFound
//   - sqlite3 unique / primary key constraint   -> Conflict
//   - mysql ER_DUP_ENTRY (1062)                 -> Conflict
//   - everything else                           -> BackendError
package sqlmapper
