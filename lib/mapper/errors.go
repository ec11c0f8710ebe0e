package mapper

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// RetCode classifies the errors of a CRUD operation.
type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Operation executed successfully.
	RetCNotFound                            // 1: The addressed key has no entity.
	RetCConflict                            // 2: Uniqueness or concurrent modification violation.
	RetCPoolExhaustedTimeout                // 3: No connection became available in time.
	RetCPoolClosed                          // 4: The pool stopped issuing connections.
	RetCBackendError                        // 5: Unclassified failure of the storage backend.
	RetCSenderDropped                       // 6: The reply slot was dropped without a result.
	RetCDispatcherClosed                    // 7: The dispatcher does not accept envelopes anymore.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCNotFound:
		return "NotFound"
	case RetCConflict:
		return "Conflict"
	case RetCPoolExhaustedTimeout:
		return "PoolExhaustedTimeout"
	case RetCPoolClosed:
		return "PoolClosed"
	case RetCBackendError:
		return "BackendError"
	case RetCSenderDropped:
		return "SenderDropped"
	case RetCDispatcherClosed:
		return "DispatcherClosed"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code, a message and optionally the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("MapperError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("MapperError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// This makes errors.Is(err, ErrNotFound) independent of message and cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error with the given code, message and cause.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// Sentinels for errors.Is, one per code.
var (
	ErrNotFound             = NewError(RetCNotFound, "not found")
	ErrConflict             = NewError(RetCConflict, "conflict")
	ErrPoolExhaustedTimeout = NewError(RetCPoolExhaustedTimeout, "pool exhausted")
	ErrPoolClosed           = NewError(RetCPoolClosed, "pool closed")
	ErrBackend              = NewError(RetCBackendError, "backend error")
	ErrSenderDropped        = NewError(RetCSenderDropped, "sender dropped")
	ErrDispatcherClosed     = NewError(RetCDispatcherClosed, "dispatcher closed")
)

// CodeOf returns the code of err. nil maps to RetCSuccess, errors that are not
// an *Error map to RetCBackendError.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCBackendError
}

// AsBackendError returns err unchanged if it already is an *Error, otherwise
// it is wrapped as RetCBackendError. nil stays nil.
func AsBackendError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return WrapError(RetCBackendError, "backend call failed", err)
}
