package clobtypes

import (
	"github.com/numo-labs/zkclob-core/pkg/codec"
	"github.com/numo-labs/zkclob-core/pkg/merkle"
)

// PublicInputsPartial is everything the host commits to a batch before the
// guest has executed it: the prior root, the batch and rules digests it must
// match, and the data-availability commitment for the message set (§6).
type PublicInputsPartial struct {
	PrevRoot        Hash
	BatchDigest     Hash
	RulesHash       Hash
	DomainSeparator Hash
	BatchSeq        uint64
	BatchTimestamp  uint64
	DACommitment    Hash
}

func (p *PublicInputsPartial) Encode(w *codec.Writer) {
	w.PutFixed(p.PrevRoot.Bytes())
	w.PutFixed(p.BatchDigest.Bytes())
	w.PutFixed(p.RulesHash.Bytes())
	w.PutFixed(p.DomainSeparator.Bytes())
	w.PutU64(p.BatchSeq)
	w.PutU64(p.BatchTimestamp)
	w.PutFixed(p.DACommitment.Bytes())
}

func DecodePublicInputsPartial(r *codec.Reader) *PublicInputsPartial {
	return &PublicInputsPartial{
		PrevRoot:        HashFromBytes(r.GetFixed(32)),
		BatchDigest:     HashFromBytes(r.GetFixed(32)),
		RulesHash:       HashFromBytes(r.GetFixed(32)),
		DomainSeparator: HashFromBytes(r.GetFixed(32)),
		BatchSeq:        r.GetU64(),
		BatchTimestamp:  r.GetU64(),
		DACommitment:    HashFromBytes(r.GetFixed(32)),
	}
}

func (p *PublicInputsPartial) EncodedBytes() []byte {
	w := codec.NewWriter(32*5 + 16)
	p.Encode(w)
	return w.Bytes()
}

// PublicInputs is the complete output of a batch: PublicInputsPartial plus
// the new root and the two per-batch output Merkle roots (§6).
type PublicInputs struct {
	PrevRoot        Hash
	NewRoot         Hash
	BatchDigest     Hash
	RulesHash       Hash
	DomainSeparator Hash
	BatchSeq        uint64
	BatchTimestamp  uint64
	DACommitment    Hash
	TradesRoot      Hash
	FeesRoot        Hash
}

func (p *PublicInputs) Encode(w *codec.Writer) {
	w.PutFixed(p.PrevRoot.Bytes())
	w.PutFixed(p.NewRoot.Bytes())
	w.PutFixed(p.BatchDigest.Bytes())
	w.PutFixed(p.RulesHash.Bytes())
	w.PutFixed(p.DomainSeparator.Bytes())
	w.PutU64(p.BatchSeq)
	w.PutU64(p.BatchTimestamp)
	w.PutFixed(p.DACommitment.Bytes())
	w.PutFixed(p.TradesRoot.Bytes())
	w.PutFixed(p.FeesRoot.Bytes())
}

func (p *PublicInputs) EncodedBytes() []byte {
	w := codec.NewWriter(32*7 + 16)
	p.Encode(w)
	return w.Bytes()
}

// GuestInput is the decoded, not-yet-proof-annotated body of a batch: the
// partial public inputs the host claims, the market's chain/venue/market
// identity and rules, and the ordered signed message list (§4.A, §6).
type GuestInput struct {
	Public   PublicInputsPartial
	ChainID  uint64
	VenueID  Hash
	MarketID Hash
	Rules    Rules
	Messages []*SignedMessage
}

func (in *GuestInput) Encode(w *codec.Writer) {
	in.Public.Encode(w)
	w.PutU64(in.ChainID)
	w.PutFixed(in.VenueID.Bytes())
	w.PutFixed(in.MarketID.Bytes())
	in.Rules.Encode(w)
	w.PutU32(uint32(len(in.Messages)))
	for _, m := range in.Messages {
		m.EncodeWire(w)
	}
}

func (in *GuestInput) EncodedBytes() []byte {
	w := codec.NewWriter(256 + len(in.Messages)*160)
	in.Encode(w)
	return w.Bytes()
}

func DecodeGuestInput(r *codec.Reader) (*GuestInput, error) {
	public := DecodePublicInputsPartial(r)
	chainID := r.GetU64()
	venueID := HashFromBytes(r.GetFixed(32))
	marketID := HashFromBytes(r.GetFixed(32))
	rules := DecodeRules(r)
	count := r.GetU32()
	if r.Err() != nil {
		return nil, DecodeErrorf("guest input header: %v", r.Err())
	}
	messages := make([]*SignedMessage, 0, count)
	for i := uint32(0); i < count; i++ {
		sm, err := DecodeSignedMessage(r)
		if err != nil {
			return nil, DecodeErrorf("guest input message %d: %v", i, err)
		}
		messages = append(messages, sm)
	}
	return &GuestInput{
		Public:   *public,
		ChainID:  chainID,
		VenueID:  venueID,
		MarketID: marketID,
		Rules:    *rules,
		Messages: messages,
	}, nil
}

// GuestBundle is a GuestInput plus the strictly ordered proof queue that
// authenticates every state access the engine performs while applying it
// (§4.A, §4.E, §6). The proof order must match the engine's access order
// exactly — it is consumed, not looked up, by clobstate.ProofState.
type GuestBundle struct {
	Input  GuestInput
	Proofs []*merkle.Proof
}

func (b *GuestBundle) Encode(w *codec.Writer) {
	b.Input.Encode(w)
	w.PutU32(uint32(len(b.Proofs)))
	for _, p := range b.Proofs {
		w.PutFixed(p.Key[:])
		if p.Present {
			w.PutByte(1)
		} else {
			w.PutByte(0)
		}
		w.PutBytes(p.Value)
		if len(p.Siblings) != merkle.Depth {
			panic("clobtypes: proof siblings length")
		}
		for _, sib := range p.Siblings {
			w.PutFixed(sib[:])
		}
	}
}

func (b *GuestBundle) EncodedBytes() []byte {
	w := codec.NewWriter(len(b.Input.Messages)*160 + len(b.Proofs)*(32*257+40))
	b.Encode(w)
	return w.Bytes()
}

func DecodeGuestBundle(r *codec.Reader) (*GuestBundle, error) {
	input, err := DecodeGuestInput(r)
	if err != nil {
		return nil, err
	}
	proofCount := r.GetU32()
	if r.Err() != nil {
		return nil, DecodeErrorf("guest bundle header: %v", r.Err())
	}
	proofs := make([]*merkle.Proof, 0, proofCount)
	for i := uint32(0); i < proofCount; i++ {
		var p merkle.Proof
		copy(p.Key[:], r.GetFixed(32))
		p.Present = r.GetByte() != 0
		p.Value = r.GetBytes()
		for d := 0; d < merkle.Depth; d++ {
			copy(p.Siblings[d][:], r.GetFixed(32))
		}
		if r.Err() != nil {
			return nil, DecodeErrorf("guest bundle proof %d: %v", i, r.Err())
		}
		proofs = append(proofs, &p)
	}
	return &GuestBundle{Input: *input, Proofs: proofs}, nil
}
