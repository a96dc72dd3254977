package clobtypes

import (
	"testing"

	"github.com/numo-labs/zkclob-core/pkg/codec"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

func TestBalanceRoundTrip(t *testing.T) {
	b := &Balance{Available: xmath.FromUint64(100), Locked: xmath.FromUint64(25)}
	r := codec.NewReader(b.EncodedBytes())
	out := DecodeBalance(r)
	if err := r.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !out.Available.Eq(b.Available) || !out.Locked.Eq(b.Locked) {
		t.Fatalf("balance round trip mismatch: %+v", out)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	o := &Order{
		Owner:        AddressFromBytes([]byte("owner")),
		Side:         SideSell,
		Tick:         -5,
		QtyRemaining: xmath.FromUint64(42),
		TIF:          TIFIOC,
		Status:       StatusOpen,
	}
	r := codec.NewReader(o.EncodedBytes())
	out := DecodeOrder(r)
	if err := r.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if out.Tick != o.Tick || out.Side != o.Side || out.TIF != o.TIF || out.Status != o.Status {
		t.Fatalf("order round trip mismatch: %+v", out)
	}
}

func TestTickNodeZeroValue(t *testing.T) {
	z := ZeroTickNode()
	if !z.IsZero() {
		t.Fatal("ZeroTickNode should report IsZero")
	}
	z.Head = HashFromBytes([]byte("x"))
	if z.IsZero() {
		t.Fatal("non-empty head should not be zero")
	}
}

func TestMarketBestEmptyUsesNoneTick(t *testing.T) {
	m := EmptyMarketBest()
	if m.BestBid != NoneTick || m.BestAsk != NoneTick {
		t.Fatalf("empty market best should use NoneTick, got %+v", m)
	}
}

func TestRulesRoundTripAndFixedFieldCheck(t *testing.T) {
	rules := sampleRules()
	r := codec.NewReader(rules.EncodedBytes())
	out := DecodeRules(r)
	if err := r.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if out.TakerFeeBps != rules.TakerFeeBps || out.MaxOrdersPerBatch != rules.MaxOrdersPerBatch {
		t.Fatalf("rules round trip mismatch: %+v", out)
	}
	if err := out.CheckFixedFields(); err != nil {
		t.Fatalf("expected fixed fields to pass: %v", err)
	}
	out.MakerFeeBps = 1
	if err := out.CheckFixedFields(); err == nil {
		t.Fatal("expected nonzero maker_fee_bps to fail")
	}
}
