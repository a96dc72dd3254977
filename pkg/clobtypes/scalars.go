package clobtypes

import (
	"math/big"

	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

// U256 is the execution core's 256-bit unsigned integer type.
type U256 = xmath.U256

// Hash is a 32-byte keccak digest or authenticated-tree key.
type Hash [32]byte

func (h Hash) Bytes() []byte { return h[:] }

func HashFromBytes(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Address is a 20-byte account identifier, Ethereum-style.
type Address [20]byte

func (a Address) Bytes() []byte { return a[:] }

func AddressFromBytes(b []byte) Address {
	var a Address
	copy(a[:], b)
	return a
}

// TickIndex is a signed price level; price = tick_index * tick_size.
type TickIndex = int32

// OrderId identifies an order; it is a Hash, with the all-zero value
// reserved as NoneOrder.
type OrderId = Hash

func mustDecU256(s string) *U256 {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("clobtypes: bad decimal literal " + s)
	}
	b := v.Bytes()
	if len(b) > 32 {
		panic("clobtypes: literal overflows 256 bits")
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return xmath.FromBytes32(padded)
}
