package signing

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

func TestDomainSeparatorDeterministic(t *testing.T) {
	venue := clobtypes.HashFromBytes([]byte("venue"))
	market := clobtypes.HashFromBytes([]byte("market"))
	a := DomainSeparator(1, venue, market)
	b := DomainSeparator(1, venue, market)
	if a != b {
		t.Fatal("domain separator should be deterministic")
	}
	c := DomainSeparator(2, venue, market)
	if a == c {
		t.Fatal("domain separator should depend on chain id")
	}
}

func TestBatchDigestOrderSensitive(t *testing.T) {
	domainSep := DomainSeparator(1, clobtypes.Hash{}, clobtypes.Hash{})
	h1 := [32]byte{1}
	h2 := [32]byte{2}
	a := BatchDigest(domainSep, 0, [][32]byte{h1, h2})
	b := BatchDigest(domainSep, 0, [][32]byte{h2, h1})
	if a == b {
		t.Fatal("batch digest must be sensitive to message order")
	}
}

func TestRecoverAddressRoundTrip(t *testing.T) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	expected := clobtypes.AddressFromBytes(ethcrypto.PubkeyToAddress(priv.PublicKey).Bytes())

	msg := &clobtypes.Message{
		Kind: clobtypes.MsgCancel,
		Cancel: &clobtypes.CancelMessage{
			Trader:  expected,
			Nonce:   1,
			OrderID: clobtypes.HashFromBytes([]byte("order")),
		},
	}
	domainSep := DomainSeparator(1, clobtypes.Hash{}, clobtypes.Hash{})
	hash := MessageHash(domainSep, msg)

	sigBytes, err := ethcrypto.Sign(hash[:], priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig := clobtypes.SignatureFromBytes(sigBytes)

	if err := VerifySignature(domainSep, msg, sig, expected); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}

	other := clobtypes.AddressFromBytes([]byte{1, 2, 3})
	if err := VerifySignature(domainSep, msg, sig, other); err == nil {
		t.Fatal("expected signer mismatch against wrong address")
	}
}

func TestPriceFromTickRejectsNegative(t *testing.T) {
	if _, err := PriceFromTick(-1, xmath.FromUint64(1)); err == nil {
		t.Fatal("expected negative-tick error")
	}
}

func TestCheckLotSize(t *testing.T) {
	if err := CheckLotSize(xmath.FromUint64(10), xmath.FromUint64(5)); err != nil {
		t.Fatalf("10 should be a multiple of 5: %v", err)
	}
	if err := CheckLotSize(xmath.FromUint64(7), xmath.FromUint64(5)); err == nil {
		t.Fatal("7 is not a multiple of 5")
	}
}
