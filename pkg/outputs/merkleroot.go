// Package outputs builds the two per-batch commitments that ride alongside
// the state root in PublicInputs: the trades root and the fees root. Both
// are the same pairwise, duplicate-last Merkle fold over keccak-256 leaves
// (§4.H, §6).
package outputs

import (
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/xhash"
)

const nodeTag = byte(0x01)

// MerkleRoot folds leaves pairwise from the left, promoting an odd leaf out
// by duplicating it against itself, until one hash remains. An empty leaf
// set roots to the all-zero hash.
func MerkleRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return clobtypes.Hash{}
	}
	level := leaves
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			var buf [65]byte
			buf[0] = nodeTag
			copy(buf[1:33], left[:])
			copy(buf[33:65], right[:])
			next = append(next, xhash.Sum256(buf[:]))
		}
		level = next
	}
	return level[0]
}

// TradesRoot hashes each trade record's canonical encoding into a leaf and
// folds them into one root, in the order the batch produced the trades.
func TradesRoot(trades []*clobtypes.TradeRecord) [32]byte {
	leaves := make([][32]byte, len(trades))
	for i, t := range trades {
		leaves[i] = xhash.Sum256(t.EncodedBytes())
	}
	return MerkleRoot(leaves)
}

// FeesRoot hashes each fee total's canonical encoding into a leaf and folds
// them into one root, in the ledger's ascending asset-id order.
func FeesRoot(totals []*clobtypes.FeeTotal) [32]byte {
	leaves := make([][32]byte, len(totals))
	for i, f := range totals {
		leaves[i] = xhash.Sum256(f.EncodedBytes())
	}
	return MerkleRoot(leaves)
}
