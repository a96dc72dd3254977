package clobtypes

import "github.com/numo-labs/zkclob-core/pkg/codec"

// Rules are immutable for the life of a batch; a change to any field
// produces a different rules_hash, which is checked against the batch's
// declared commitment in the driver (§4.H).
type Rules struct {
	BaseAssetID        Hash
	QuoteAssetID       Hash
	PriceScale         *U256
	TickSize           *U256
	LotSize            *U256
	TakerFeeBps        uint32
	MakerFeeBps        uint32
	MaxOrdersPerBatch  uint32
	MaxMatchesPerOrder uint32
	MaxBalance         *U256
}

// Encode writes Rules in the canonical field order from §3.
func (r *Rules) Encode(w *codec.Writer) {
	w.PutFixed(r.BaseAssetID.Bytes())
	w.PutFixed(r.QuoteAssetID.Bytes())
	w.PutFixed(xU256Bytes(r.PriceScale))
	w.PutFixed(xU256Bytes(r.TickSize))
	w.PutFixed(xU256Bytes(r.LotSize))
	w.PutU32(r.TakerFeeBps)
	w.PutU32(r.MakerFeeBps)
	w.PutU32(r.MaxOrdersPerBatch)
	w.PutU32(r.MaxMatchesPerOrder)
	w.PutFixed(xU256Bytes(r.MaxBalance))
}

// DecodeRules reads Rules from r in the canonical field order.
func DecodeRules(r *codec.Reader) *Rules {
	return &Rules{
		BaseAssetID:        HashFromBytes(r.GetFixed(32)),
		QuoteAssetID:       HashFromBytes(r.GetFixed(32)),
		PriceScale:         u256FromFixed(r.GetFixed(32)),
		TickSize:           u256FromFixed(r.GetFixed(32)),
		LotSize:            u256FromFixed(r.GetFixed(32)),
		TakerFeeBps:        r.GetU32(),
		MakerFeeBps:        r.GetU32(),
		MaxOrdersPerBatch:  r.GetU32(),
		MaxMatchesPerOrder: r.GetU32(),
		MaxBalance:         u256FromFixed(r.GetFixed(32)),
	}
}

// EncodedBytes returns the canonical encoding, used as the preimage of
// rules_hash.
func (r *Rules) EncodedBytes() []byte {
	w := codec.NewWriter(32 * 6)
	r.Encode(w)
	return w.Bytes()
}

// CheckFixedFields validates the two rule fields with a single legal value
// (§4.G prebatch checks): price_scale must be 10^18, maker_fee_bps must be 0.
func (r *Rules) CheckFixedFields() error {
	if !r.PriceScale.Eq(PriceScale) {
		return InvalidErrorf("rules: price_scale must equal 10^18")
	}
	if r.MakerFeeBps != 0 {
		return InvalidErrorf("rules: maker_fee_bps must be zero")
	}
	return nil
}
