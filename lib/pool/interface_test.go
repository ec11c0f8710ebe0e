package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleReleaseOnce(t *testing.T) {
	released, discarded := 0, 0
	h := NewHandle(42, func(int) { released++ }, func(int) { discarded++ })

	assert.Equal(t, 42, h.Conn())
	h.Release()
	h.Release()
	h.Discard()

	assert.Equal(t, 1, released)
	assert.Equal(t, 0, discarded)
}

func TestHandleDiscard(t *testing.T) {
	released, discarded := 0, 0
	h := NewHandle("c", func(string) { released++ }, func(string) { discarded++ })

	h.Discard()
	h.Release()

	assert.Equal(t, 0, released)
	assert.Equal(t, 1, discarded)
}

func TestHandleDiscardFallsBackToRelease(t *testing.T) {
	released := 0
	h := NewHandle("c", func(string) { released++ }, nil)
	h.Discard()
	assert.Equal(t, 1, released)
}
