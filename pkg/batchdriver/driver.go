// Package batchdriver is the guest-side orchestration that wraps the
// matching engine: given an already decoded bundle, re-derive and check every
// digest the host claimed, replay the batch against the supplied proof queue, fold the
// output roots, and assemble the committed public inputs plus the touched-key
// audit digest (§4.H).
package batchdriver

import (
	"github.com/numo-labs/zkclob-core/pkg/clobstate"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/matching"
	"github.com/numo-labs/zkclob-core/pkg/outputs"
	"github.com/numo-labs/zkclob-core/pkg/signing"
	"github.com/numo-labs/zkclob-core/pkg/xhash"
)

// Result is everything a batch run produces: the public inputs the guest
// commits plus the digest over every key it touched, and the trade tape for
// callers (e.g. the host's own bookkeeping) that need it beyond the root.
type Result struct {
	Public        *clobtypes.PublicInputs
	TouchedDigest [32]byte
	Trades        []*clobtypes.TradeRecord
	FeeTotals     []*clobtypes.FeeTotal
}

// Run re-derives domain separator, rules hash, and batch digest from
// bundle.Input and requires them to match what the host claimed in
// PublicInputsPartial, then replays every message against a ProofState seeded
// from bundle.Proofs, and requires the proof queue to be fully consumed
// (§4.H). Any mismatch or unconsumed proof aborts the whole run.
func Run(bundle *clobtypes.GuestBundle) (*Result, error) {
	input := bundle.Input

	expectedDomain := signing.DomainSeparator(input.ChainID, input.VenueID, input.MarketID)
	if expectedDomain != [32]byte(input.Public.DomainSeparator) {
		return nil, clobtypes.StateErrorf("domain separator mismatch")
	}
	expectedRules := signing.RulesHash(&input.Rules)
	if expectedRules != [32]byte(input.Public.RulesHash) {
		return nil, clobtypes.StateErrorf("rules hash mismatch")
	}

	msgHashes := make([][32]byte, len(input.Messages))
	for i, m := range input.Messages {
		msgHashes[i] = signing.MessageHash(expectedDomain, &m.Message)
	}
	expectedBatch := signing.BatchDigest(expectedDomain, input.Public.BatchSeq, msgHashes)
	if expectedBatch != [32]byte(input.Public.BatchDigest) {
		return nil, clobtypes.StateErrorf("batch digest mismatch")
	}

	state := clobstate.NewProofState([32]byte(input.Public.PrevRoot), bundle.Proofs)
	output, err := matching.ApplyBatch(state, input.MarketID, &input.Rules, expectedDomain, input.Messages)
	if err != nil {
		return nil, err
	}
	if state.RemainingProofs() != 0 {
		return nil, clobtypes.StateErrorf("unused proofs")
	}

	tradesRoot := outputs.TradesRoot(output.Trades)
	feesRoot := outputs.FeesRoot(output.FeeTotals)

	public := &clobtypes.PublicInputs{
		PrevRoot:        input.Public.PrevRoot,
		NewRoot:         clobtypes.Hash(state.Root),
		BatchDigest:     input.Public.BatchDigest,
		RulesHash:       input.Public.RulesHash,
		DomainSeparator: input.Public.DomainSeparator,
		BatchSeq:        input.Public.BatchSeq,
		BatchTimestamp:  input.Public.BatchTimestamp,
		DACommitment:    input.Public.DACommitment,
		TradesRoot:      clobtypes.Hash(tradesRoot),
		FeesRoot:        clobtypes.Hash(feesRoot),
	}

	touchedConcat := make([]byte, 0, len(state.TouchedKeys)*32)
	for _, key := range state.TouchedKeys {
		touchedConcat = append(touchedConcat, key[:]...)
	}
	touchedDigest := xhash.Sum256(touchedConcat)

	return &Result{
		Public:        public,
		TouchedDigest: touchedDigest,
		Trades:        output.Trades,
		FeeTotals:     output.FeeTotals,
	}, nil
}
