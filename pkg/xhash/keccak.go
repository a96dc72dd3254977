// Package xhash wraps the single hash primitive the execution core uses:
// keccak-256, exactly as golang.org/x/crypto/sha3 computes it (NOT the
// NIST SHA3-256 padding — the teacher's ethaddr.go relies on the same
// distinction when deriving Ethereum-style addresses).
package xhash

import "golang.org/x/crypto/sha3"

// Size is the digest length in bytes.
const Size = 32

// Sum256 returns keccak256(concat(parts...)).
func Sum256(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Sum256Slice is Sum256 but returns a []byte, convenient where callers treat
// digests as opaque Hash values rather than fixed arrays.
func Sum256Slice(parts ...[]byte) []byte {
	out := Sum256(parts...)
	return out[:]
}
