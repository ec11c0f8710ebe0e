package util

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// GenerateSeed returns a random seed, falling back to the current time if the
// system random source fails.
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// HashString hashes a string with FNV-1a, mixed with the given seed.
func HashString(s string, seed uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}

// HashKey hashes an arbitrary key by its string representation.
// Strings and fmt.Stringer values are used as they are, everything else is
// formatted with %v. The FNV-1a result is passed through a finalizer so the
// low bits are usable for modulo bucketing.
func HashKey[I any](key I, seed uint64) uint64 {
	var s string
	switch k := any(key).(type) {
	case string:
		s = k
	case fmt.Stringer:
		s = k.String()
	default:
		s = fmt.Sprintf("%v", k)
	}
	return mix64(HashString(s, seed))
}

// mix64 is the murmur3 64 bit finalizer
func mix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}
