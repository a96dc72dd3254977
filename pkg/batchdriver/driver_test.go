package batchdriver

import (
	"crypto/ecdsa"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/numo-labs/zkclob-core/pkg/clobstate"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/matching"
	"github.com/numo-labs/zkclob-core/pkg/merkle"
	"github.com/numo-labs/zkclob-core/pkg/signing"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

func driverTestRules() *clobtypes.Rules {
	return &clobtypes.Rules{
		BaseAssetID:        clobtypes.HashFromBytes([]byte("base")),
		QuoteAssetID:       clobtypes.HashFromBytes([]byte("quote")),
		PriceScale:         clobtypes.PriceScale,
		TickSize:           clobtypes.PriceScale,
		LotSize:            xmath.FromUint64(1),
		TakerFeeBps:        0,
		MakerFeeBps:        0,
		MaxOrdersPerBatch:  10,
		MaxMatchesPerOrder: 10,
		MaxBalance:         xmath.FromUint64(1_000_000_000),
	}
}

func genDriverAccount(t *testing.T) (*ecdsa.PrivateKey, clobtypes.Address) {
	t.Helper()
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return priv, clobtypes.AddressFromBytes(ethcrypto.PubkeyToAddress(priv.PublicKey).Bytes())
}

func signDriverMessage(t *testing.T, priv *ecdsa.PrivateKey, domainSep [32]byte, msg clobtypes.Message) *clobtypes.SignedMessage {
	t.Helper()
	hash := signing.MessageHash(domainSep, &msg)
	sig, err := ethcrypto.Sign(hash[:], priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	var s clobtypes.Signature
	copy(s.R[:], sig[0:32])
	copy(s.S[:], sig[32:64])
	s.V = sig[64]
	return &clobtypes.SignedMessage{Message: msg, Signature: s}
}

func TestRunAssemblesPublicInputsForGTCRest(t *testing.T) {
	rules := driverTestRules()
	chainID := uint64(1)
	venueID := clobtypes.HashFromBytes([]byte("venue"))
	marketID := clobtypes.HashFromBytes([]byte("market"))
	domainSep := signing.DomainSeparator(chainID, venueID, marketID)

	sellerPriv, sellerAddr := genDriverAccount(t)

	tree := merkle.NewSparseMerkleTree()
	sellerBalance := &clobtypes.Balance{Available: xmath.FromUint64(10), Locked: xmath.Zero()}
	tree.Update(clobstate.KeyBalance(sellerAddr, rules.BaseAssetID), sellerBalance.EncodedBytes())
	recState := clobstate.NewRecordingState(tree)
	prevRoot := recState.Root

	place := clobtypes.Message{
		Kind: clobtypes.MsgPlace,
		Place: &clobtypes.PlaceMessage{
			Trader:       sellerAddr,
			Nonce:        1,
			OrderID:      clobtypes.HashFromBytes([]byte("order-1")),
			Side:         clobtypes.SideSell,
			TIF:          clobtypes.TIFGTC,
			Tick:         3,
			QtyBase:      xmath.FromUint64(4),
			PrevTickHint: clobtypes.NoneTick,
			NextTickHint: clobtypes.NoneTick,
		},
	}
	signed := signDriverMessage(t, sellerPriv, domainSep, place)

	msgHashes := [][32]byte{signing.MessageHash(domainSep, &signed.Message)}
	batchDigest := signing.BatchDigest(domainSep, 1, msgHashes)
	rulesHash := signing.RulesHash(rules)

	if _, err := matching.ApplyBatch(recState, marketID, rules, domainSep, []*clobtypes.SignedMessage{signed}); err != nil {
		t.Fatalf("apply batch (recording): %v", err)
	}

	bundle := &clobtypes.GuestBundle{
		Input: clobtypes.GuestInput{
			Public: clobtypes.PublicInputsPartial{
				PrevRoot:        clobtypes.Hash(prevRoot),
				BatchDigest:     clobtypes.Hash(batchDigest),
				RulesHash:       clobtypes.Hash(rulesHash),
				DomainSeparator: clobtypes.Hash(domainSep),
				BatchSeq:        1,
				BatchTimestamp:  1000,
				DACommitment:    clobtypes.Hash{},
			},
			ChainID:  chainID,
			VenueID:  venueID,
			MarketID: marketID,
			Rules:    *rules,
			Messages: []*clobtypes.SignedMessage{signed},
		},
		Proofs: recState.Proofs,
	}

	result, err := Run(bundle)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Public.NewRoot != clobtypes.Hash(recState.Root) {
		t.Fatalf("new root mismatch: got %x want %x", result.Public.NewRoot, recState.Root)
	}
	if len(result.Trades) != 0 {
		t.Fatalf("expected no trades for a resting order, got %d", len(result.Trades))
	}
	if result.Public.TradesRoot != (clobtypes.Hash{}) {
		t.Fatal("trades root should be zero with no trades")
	}
	if result.TouchedDigest == ([32]byte{}) {
		t.Fatal("touched digest should be non-zero once keys were touched")
	}
}

func TestRunRejectsBatchDigestMismatch(t *testing.T) {
	rules := driverTestRules()
	chainID := uint64(1)
	venueID := clobtypes.HashFromBytes([]byte("venue"))
	marketID := clobtypes.HashFromBytes([]byte("market"))
	domainSep := signing.DomainSeparator(chainID, venueID, marketID)

	_, sellerAddr := genDriverAccount(t)
	tree := merkle.NewSparseMerkleTree()
	recState := clobstate.NewRecordingState(tree)

	bundle := &clobtypes.GuestBundle{
		Input: clobtypes.GuestInput{
			Public: clobtypes.PublicInputsPartial{
				PrevRoot:        clobtypes.Hash(recState.Root),
				BatchDigest:     clobtypes.HashFromBytes([]byte("wrong")),
				RulesHash:       clobtypes.Hash(signing.RulesHash(rules)),
				DomainSeparator: clobtypes.Hash(domainSep),
				BatchSeq:        1,
			},
			ChainID:  chainID,
			VenueID:  venueID,
			MarketID: marketID,
			Rules:    *rules,
			Messages: nil,
		},
	}
	_ = sellerAddr
	if _, err := Run(bundle); err == nil {
		t.Fatal("expected batch digest mismatch to be rejected")
	}
}
