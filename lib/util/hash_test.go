package util

import (
	"strconv"
	"testing"
)

type stringerKey struct{ id int }

func (k stringerKey) String() string { return "key-" + strconv.Itoa(k.id) }

func TestHashStringDeterministic(t *testing.T) {
	if HashString("abc", 0) != HashString("abc", 0) {
		t.Error("same input and seed must hash equally")
	}
	if HashString("abc", 0) == HashString("abc", 1) {
		t.Error("different seeds should produce different hashes")
	}
	if HashString("abc", 0) == HashString("abd", 0) {
		t.Error("different inputs should produce different hashes")
	}
}

func TestHashKey(t *testing.T) {
	if HashKey("abc", 7) != HashKey("abc", 7) {
		t.Error("same key and seed must hash equally")
	}
	if HashKey(42, 7) != HashKey("42", 7) {
		t.Error("int keys must hash their decimal representation")
	}
	if HashKey(stringerKey{3}, 7) != HashKey("key-3", 7) {
		t.Error("Stringer keys must hash their String() value")
	}
	if HashKey("a", 7) == HashKey("b", 7) {
		t.Error("different keys should produce different hashes")
	}
}

func TestHashSpread(t *testing.T) {
	const buckets = 8
	counts := make([]float64, buckets)
	for i := 0; i < 8000; i++ {
		counts[HashKey(i, 0)%buckets]++
	}

	load := NewLoad(counts)
	if load.Balance < 0.8 {
		t.Errorf("expected an even spread over %d buckets, balance %.2f (%v)", buckets, load.Balance, counts)
	}
}
