package mapper

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsByCode(t *testing.T) {
	err := NewError(RetCNotFound, "url abc")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))

	wrapped := fmt.Errorf("read failed: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, RetCNotFound, CodeOf(wrapped))
}

func TestErrorUnwrap(t *testing.T) {
	err := WrapError(RetCBackendError, "query", sql.ErrConnDone)
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.True(t, errors.Is(err, ErrBackend))
	assert.Contains(t, err.Error(), "BackendError")
	assert.Contains(t, err.Error(), sql.ErrConnDone.Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, RetCSuccess, CodeOf(nil))
	assert.Equal(t, RetCBackendError, CodeOf(errors.New("boom")))
	assert.Equal(t, RetCPoolClosed, CodeOf(ErrPoolClosed))
}

func TestAsBackendError(t *testing.T) {
	assert.Nil(t, AsBackendError(nil))

	plain := errors.New("disk on fire")
	got := AsBackendError(plain)
	assert.True(t, errors.Is(got, ErrBackend))
	assert.True(t, errors.Is(got, plain))

	notFound := NewError(RetCNotFound, "x")
	assert.Same(t, notFound, AsBackendError(notFound))
}

func TestRetCodeString(t *testing.T) {
	assert.Equal(t, "NotFound", RetCNotFound.String())
	assert.Equal(t, "PoolExhaustedTimeout", RetCPoolExhaustedTimeout.String())
	assert.Equal(t, "Unknown", RetCode(99).String())
}
