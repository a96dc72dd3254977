// Package signing implements the determinism envelope's hashing and
// signature-recovery primitives: domain separation, message/batch digests,
// and EIP-191-style ECDSA-secp256k1 recovery to a 20-byte address (§4.F,
// §4.H).
package signing

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/xhash"
)

// DomainSeparator binds every signature and batch digest to a chain, venue
// and market: keccak(DOMAIN_TAG || chain_id(8) || venue_id(32) || market_id(32)).
func DomainSeparator(chainID uint64, venueID, marketID clobtypes.Hash) [32]byte {
	var chainBuf [8]byte
	binary.BigEndian.PutUint64(chainBuf[:], chainID)
	return xhash.Sum256([]byte(clobtypes.DomainTag), chainBuf[:], venueID.Bytes(), marketID.Bytes())
}

// RulesHash is keccak(rules.encode()).
func RulesHash(rules *clobtypes.Rules) [32]byte {
	return xhash.Sum256(rules.EncodedBytes())
}

// MessageHash is the EIP-191-style preimage hash:
// keccak(0x19 || 0x01 || domain_sep || keccak(canonical_bytes)).
func MessageHash(domainSep [32]byte, msg *clobtypes.Message) [32]byte {
	msgStruct := xhash.Sum256(msg.SignedPreimageBytes())
	return xhash.Sum256([]byte{0x19, 0x01}, domainSep[:], msgStruct[:])
}

// BatchDigest binds the committed public inputs to the exact message
// sequence and order:
// keccak(BATCH_TAG || domain_sep || batch_seq(8) || keccak(concat(msg_hashes))).
func BatchDigest(domainSep [32]byte, batchSeq uint64, msgHashes [][32]byte) [32]byte {
	concat := make([]byte, 0, len(msgHashes)*32)
	for _, h := range msgHashes {
		concat = append(concat, h[:]...)
	}
	inner := xhash.Sum256(concat)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], batchSeq)
	return xhash.Sum256([]byte(clobtypes.BatchTag), domainSep[:], seqBuf[:], inner[:])
}

// RecoverAddress recovers the 20-byte Ethereum-style address that produced
// sig over hash: v is normalized from {0,1,27,28} to {0,1}, the signature is
// recovered to an uncompressed secp256k1 public key via go-ethereum/crypto,
// and the address is the last 20 bytes of keccak(pubkey[1:]).
func RecoverAddress(hash [32]byte, sig clobtypes.Signature) (clobtypes.Address, error) {
	v := sig.V
	switch {
	case v == 0 || v == 1:
		// already normalized
	case v == 27 || v == 28:
		v -= 27
	default:
		return clobtypes.Address{}, clobtypes.SignatureErrorf("invalid recovery id %d", sig.V)
	}

	var recoverable [65]byte
	copy(recoverable[0:32], sig.R[:])
	copy(recoverable[32:64], sig.S[:])
	recoverable[64] = v

	pubkey, err := ethcrypto.Ecrecover(hash[:], recoverable[:])
	if err != nil {
		return clobtypes.Address{}, clobtypes.SignatureErrorf("recover failed: %v", err)
	}
	if len(pubkey) != 65 {
		return clobtypes.Address{}, clobtypes.SignatureErrorf("invalid recovered pubkey length %d", len(pubkey))
	}
	addrHash := xhash.Sum256(pubkey[1:])
	return clobtypes.AddressFromBytes(addrHash[12:]), nil
}

// VerifySignature recovers the signer of msg under domainSep and requires it
// to equal expected.
func VerifySignature(domainSep [32]byte, msg *clobtypes.Message, sig clobtypes.Signature, expected clobtypes.Address) error {
	hash := MessageHash(domainSep, msg)
	addr, err := RecoverAddress(hash, sig)
	if err != nil {
		return err
	}
	if addr != expected {
		return clobtypes.SignatureErrorf("signer mismatch")
	}
	return nil
}

// PriceFromTick computes tick_index * tick_size, rejecting negative ticks.
func PriceFromTick(tick clobtypes.TickIndex, tickSize *clobtypes.U256) (*clobtypes.U256, error) {
	if tick < 0 {
		return nil, clobtypes.InvalidErrorf("negative tick")
	}
	idx := new(clobtypes.U256).SetUint64(uint64(tick))
	price := new(clobtypes.U256).Mul(tickSize, idx)
	return price, nil
}
