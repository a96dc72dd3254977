// Package xmath implements the 256-bit unsigned arithmetic the execution
// core needs: fixed-width encode/decode and overflow-checked mul-div with a
// 512-bit intermediate product, backed by github.com/holiman/uint256.
package xmath

import (
	"fmt"

	"github.com/holiman/uint256"
)

// U256 is the execution core's 256-bit unsigned integer type.
type U256 = uint256.Int

// Zero returns the additive identity.
func Zero() *U256 { return new(U256) }

// FromUint64 builds a U256 from a native uint64.
func FromUint64(v uint64) *U256 { return uint256.NewInt(v) }

// FromBytes32 decodes a 32-byte big-endian word. It panics if b is not
// exactly 32 bytes; callers must have already bounds-checked via codec.Reader.
func FromBytes32(b []byte) *U256 {
	if len(b) != 32 {
		panic(fmt.Sprintf("xmath: FromBytes32 requires 32 bytes, got %d", len(b)))
	}
	var z U256
	return z.SetBytes32(b)
}

// ToBytes32 encodes v as a 32-byte big-endian word.
func ToBytes32(v *U256) []byte {
	arr := v.Bytes32()
	return arr[:]
}

// MulDivDown computes floor(a*b/d) using a 512-bit intermediate product,
// failing on division by zero or on a quotient that does not fit in 256
// bits.
func MulDivDown(a, b, d *U256) (*U256, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("xmath: mul_div_down division by zero")
	}
	var q U256
	_, overflow := q.MulDivOverflow(a, b, d)
	if overflow {
		return nil, fmt.Errorf("xmath: mul_div_down result overflows 256 bits")
	}
	return &q, nil
}

// MulDivUp computes ceil(a*b/d) using a 512-bit intermediate product.
// Returns zero when a*b == 0, matching the spec's rounding convention.
// Fails on division by zero or on a result that does not fit in 256 bits
// after rounding up.
func MulDivUp(a, b, d *U256) (*U256, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("xmath: mul_div_up division by zero")
	}
	var q U256
	_, overflow := q.MulDivOverflow(a, b, d)
	if overflow {
		return nil, fmt.Errorf("xmath: mul_div_up result overflows 256 bits")
	}
	var rem U256
	rem.MulMod(a, b, d)
	if rem.IsZero() {
		return &q, nil
	}
	one := uint256.NewInt(1)
	if q.Eq(maxU256()) {
		return nil, fmt.Errorf("xmath: mul_div_up result overflows 256 bits")
	}
	q.Add(&q, one)
	return &q, nil
}

func maxU256() *U256 {
	var z U256
	for i := range z {
		z[i] = ^uint64(0)
	}
	return &z
}

// Add returns a+b, failing if the sum exceeds 256 bits.
func Add(a, b *U256) (*U256, error) {
	var z U256
	_, overflow := z.AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("xmath: addition overflows 256 bits")
	}
	return &z, nil
}

// Sub returns a-b, failing on underflow.
func Sub(a, b *U256) (*U256, error) {
	var z U256
	_, underflow := z.SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("xmath: subtraction underflows below zero")
	}
	return &z, nil
}

// Lte reports whether a <= b.
func Lte(a, b *U256) bool {
	return a.Lt(b) || a.Eq(b)
}

// Gt reports whether a > b.
func Gt(a, b *U256) bool {
	return a.Gt(b)
}
