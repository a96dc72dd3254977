package clobtypes

import "github.com/numo-labs/zkclob-core/pkg/xmath"

func xU256Bytes(v *U256) []byte {
	if v == nil {
		v = xmath.Zero()
	}
	return xmath.ToBytes32(v)
}

func u256FromFixed(b []byte) *U256 {
	return xmath.FromBytes32(b)
}
