// Package mapper defines the CRUD contract every resource mapper implements
// and the error taxonomy shared by mappers, pools and the dispatcher.
//
// Key Components:
//
//   - IMapper Interface: ReadList, ReadByID, Create, Update and DeleteByID over
//     a connection that is checked out by the caller. Because a mapper never
//     touches a pool, it can be tested with a fake connection.
//
//   - Error System: *Error carries a RetCode, a message and an optional cause.
//     Errors compare by code, so errors.Is(err, mapper.ErrNotFound) holds for
//     every NotFound error regardless of its message.
//
// Error Kinds:
//
//   - NotFound: the addressed key has no entity (read, update, delete)
//   - Conflict: a uniqueness constraint was violated (create, update)
//   - PoolExhaustedTimeout: no connection became available within the bound
//   - PoolClosed: the pool stopped issuing connections, fatal for a dispatcher
//   - BackendError: anything the backend reports that is not classified above
//   - SenderDropped, DispatcherClosed: the request never reached a mapper
//
// Implementations:
//
//   - memmapper: in-memory mapper, its connection is a handle on a shared table
//   - sqlmapper: database/sql mapper driven by an entity codec
//   - urlmap: the url mapper entity on top of sqlmapper
//
// The testing sub package holds a conformance suite that every implementation
// runs in its own tests.
package mapper
