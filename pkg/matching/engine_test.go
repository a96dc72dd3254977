package matching

import (
	"crypto/ecdsa"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/numo-labs/zkclob-core/pkg/clobstate"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/signing"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

// memState is a trivial, unauthenticated key-value StateAccess used only to
// exercise the engine's logic directly, without a merkle proof stream.
type memState map[[32]byte][]byte

func newMemState() memState { return make(memState) }

func (m memState) ReadValue(key [32]byte) ([]byte, error) { return m[key], nil }

func (m memState) WriteValue(key [32]byte, value []byte) error {
	m[key] = value
	return nil
}

func testRules() *clobtypes.Rules {
	return &clobtypes.Rules{
		BaseAssetID:        clobtypes.HashFromBytes([]byte("base-asset")),
		QuoteAssetID:       clobtypes.HashFromBytes([]byte("quote-asset")),
		PriceScale:         clobtypes.PriceScale,
		TickSize:           clobtypes.PriceScale,
		LotSize:            xmath.FromUint64(1),
		TakerFeeBps:        0,
		MakerFeeBps:        0,
		MaxOrdersPerBatch:  100,
		MaxMatchesPerOrder: 100,
		MaxBalance:         xmath.FromUint64(1_000_000),
	}
}

func genAccount(t *testing.T) (*ecdsa.PrivateKey, clobtypes.Address) {
	t.Helper()
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := clobtypes.AddressFromBytes(ethcrypto.PubkeyToAddress(priv.PublicKey).Bytes())
	return priv, addr
}

func signMessage(t *testing.T, priv *ecdsa.PrivateKey, domainSep [32]byte, msg clobtypes.Message) *clobtypes.SignedMessage {
	t.Helper()
	hash := signing.MessageHash(domainSep, &msg)
	sigBytes, err := ethcrypto.Sign(hash[:], priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return &clobtypes.SignedMessage{Message: msg, Signature: clobtypes.SignatureFromBytes(sigBytes)}
}

func bal(available, locked uint64) *clobtypes.Balance {
	return &clobtypes.Balance{Available: xmath.FromUint64(available), Locked: xmath.FromUint64(locked)}
}

// TestIOCBuyFullyFillsAgainstOneGTCAsk is seed scenario 1 (§8).
func TestIOCBuyFullyFillsAgainstOneGTCAsk(t *testing.T) {
	state := newMemState()
	rules := testRules()
	marketID := clobtypes.HashFromBytes([]byte("market"))
	domainSep := signing.DomainSeparator(1, clobtypes.HashFromBytes([]byte("venue")), marketID)

	makerPriv, makerAddr := genAccount(t)
	takerPriv, takerAddr := genAccount(t)

	makerOrderID := clobtypes.HashFromBytes([]byte("maker-order-1"))
	if err := clobstate.SetOrder(state, makerOrderID, &clobtypes.Order{
		Owner: makerAddr, Side: clobtypes.SideSell, Tick: 1,
		QtyRemaining: xmath.FromUint64(10), TIF: clobtypes.TIFGTC, Status: clobtypes.StatusOpen,
	}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetOrderNode(state, makerOrderID, clobtypes.ZeroOrderNode()); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetTickNode(state, marketID, clobtypes.SideSell, 1, &clobtypes.TickNode{
		PrevTick: clobtypes.NoneTick, NextTick: clobtypes.NoneTick, Head: makerOrderID, Tail: makerOrderID,
	}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetMarketBest(state, marketID, &clobtypes.MarketBest{BestBid: clobtypes.NoneTick, BestAsk: 1}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetBalance(state, makerAddr, rules.BaseAssetID, bal(0, 10)); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetBalance(state, takerAddr, rules.QuoteAssetID, bal(10, 0)); err != nil {
		t.Fatal(err)
	}

	takerOrderID := clobtypes.HashFromBytes([]byte("taker-order-1"))
	msg := clobtypes.Message{Kind: clobtypes.MsgPlace, Place: &clobtypes.PlaceMessage{
		Trader: takerAddr, Nonce: 1, OrderID: takerOrderID,
		Side: clobtypes.SideBuy, TIF: clobtypes.TIFIOC, Tick: 1, QtyBase: xmath.FromUint64(5),
		PrevTickHint: clobtypes.NoneTick, NextTickHint: clobtypes.NoneTick,
	}}
	signed := signMessage(t, takerPriv, domainSep, msg)

	out, err := ApplyBatch(state, marketID, rules, domainSep, []*clobtypes.SignedMessage{signed})
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if len(out.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(out.Trades))
	}
	trade := out.Trades[0]
	if !trade.QuoteAmt.Eq(xmath.FromUint64(5)) || !trade.TakerFeeQuote.IsZero() {
		t.Fatalf("unexpected trade: quote_amt=%v fee=%v", trade.QuoteAmt, trade.TakerFeeQuote)
	}

	makerBase, err := clobstate.GetBalance(state, makerAddr, rules.BaseAssetID)
	if err != nil {
		t.Fatal(err)
	}
	if !makerBase.Locked.Eq(xmath.FromUint64(5)) {
		t.Fatalf("maker base locked = %v, want 5", makerBase.Locked)
	}
	makerQuote, err := clobstate.GetBalance(state, makerAddr, rules.QuoteAssetID)
	if err != nil {
		t.Fatal(err)
	}
	if !makerQuote.Available.Eq(xmath.FromUint64(5)) {
		t.Fatalf("maker quote available = %v, want 5", makerQuote.Available)
	}
	takerBase, err := clobstate.GetBalance(state, takerAddr, rules.BaseAssetID)
	if err != nil {
		t.Fatal(err)
	}
	if !takerBase.Available.Eq(xmath.FromUint64(5)) {
		t.Fatalf("taker base available = %v, want 5", takerBase.Available)
	}
	takerQuote, err := clobstate.GetBalance(state, takerAddr, rules.QuoteAssetID)
	if err != nil {
		t.Fatal(err)
	}
	if !takerQuote.Available.Eq(xmath.FromUint64(5)) {
		t.Fatalf("taker quote available = %v, want 5", takerQuote.Available)
	}
}

// TestGTCSellRestsOnEmptyBook is seed scenario 2 (§8).
func TestGTCSellRestsOnEmptyBook(t *testing.T) {
	state := newMemState()
	rules := testRules()
	marketID := clobtypes.HashFromBytes([]byte("market"))
	domainSep := signing.DomainSeparator(1, clobtypes.HashFromBytes([]byte("venue")), marketID)

	sellerPriv, sellerAddr := genAccount(t)
	if err := clobstate.SetBalance(state, sellerAddr, rules.BaseAssetID, bal(10, 0)); err != nil {
		t.Fatal(err)
	}

	orderID := clobtypes.HashFromBytes([]byte("seller-order"))
	msg := clobtypes.Message{Kind: clobtypes.MsgPlace, Place: &clobtypes.PlaceMessage{
		Trader: sellerAddr, Nonce: 1, OrderID: orderID,
		Side: clobtypes.SideSell, TIF: clobtypes.TIFGTC, Tick: 3, QtyBase: xmath.FromUint64(4),
		PrevTickHint: clobtypes.NoneTick, NextTickHint: clobtypes.NoneTick,
	}}
	signed := signMessage(t, sellerPriv, domainSep, msg)

	out, err := ApplyBatch(state, marketID, rules, domainSep, []*clobtypes.SignedMessage{signed})
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if len(out.Trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(out.Trades))
	}

	sellerBase, err := clobstate.GetBalance(state, sellerAddr, rules.BaseAssetID)
	if err != nil {
		t.Fatal(err)
	}
	if !sellerBase.Available.Eq(xmath.FromUint64(6)) || !sellerBase.Locked.Eq(xmath.FromUint64(4)) {
		t.Fatalf("seller base = %+v, want available=6 locked=4", sellerBase)
	}

	best, err := clobstate.GetMarketBest(state, marketID)
	if err != nil {
		t.Fatal(err)
	}
	if best.BestAsk != 3 {
		t.Fatalf("best_ask = %d, want 3", best.BestAsk)
	}

	tickNode, err := clobstate.GetTickNode(state, marketID, clobtypes.SideSell, 3)
	if err != nil {
		t.Fatal(err)
	}
	if tickNode.Head != orderID || tickNode.Tail != orderID {
		t.Fatalf("tick node head/tail = %+v, want both %v", tickNode, orderID)
	}
}

// TestIOCPartialFillReleasesRemainder is seed scenario 3 (§8).
func TestIOCPartialFillReleasesRemainder(t *testing.T) {
	state := newMemState()
	rules := testRules()
	marketID := clobtypes.HashFromBytes([]byte("market"))
	domainSep := signing.DomainSeparator(1, clobtypes.HashFromBytes([]byte("venue")), marketID)

	_, makerAddr := genAccount(t)
	buyerPriv, buyerAddr := genAccount(t)

	makerOrderID := clobtypes.HashFromBytes([]byte("maker-order"))
	if err := clobstate.SetOrder(state, makerOrderID, &clobtypes.Order{
		Owner: makerAddr, Side: clobtypes.SideSell, Tick: 2,
		QtyRemaining: xmath.FromUint64(3), TIF: clobtypes.TIFGTC, Status: clobtypes.StatusOpen,
	}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetOrderNode(state, makerOrderID, clobtypes.ZeroOrderNode()); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetTickNode(state, marketID, clobtypes.SideSell, 2, &clobtypes.TickNode{
		PrevTick: clobtypes.NoneTick, NextTick: clobtypes.NoneTick, Head: makerOrderID, Tail: makerOrderID,
	}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetMarketBest(state, marketID, &clobtypes.MarketBest{BestBid: clobtypes.NoneTick, BestAsk: 2}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetBalance(state, makerAddr, rules.BaseAssetID, bal(0, 3)); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetBalance(state, buyerAddr, rules.QuoteAssetID, bal(10, 0)); err != nil {
		t.Fatal(err)
	}

	orderID := clobtypes.HashFromBytes([]byte("buyer-order"))
	msg := clobtypes.Message{Kind: clobtypes.MsgPlace, Place: &clobtypes.PlaceMessage{
		Trader: buyerAddr, Nonce: 1, OrderID: orderID,
		Side: clobtypes.SideBuy, TIF: clobtypes.TIFIOC, Tick: 2, QtyBase: xmath.FromUint64(5),
		PrevTickHint: clobtypes.NoneTick, NextTickHint: clobtypes.NoneTick,
	}}
	signed := signMessage(t, buyerPriv, domainSep, msg)

	out, err := ApplyBatch(state, marketID, rules, domainSep, []*clobtypes.SignedMessage{signed})
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if len(out.Trades) != 1 || !out.Trades[0].QtyBase.Eq(xmath.FromUint64(3)) {
		t.Fatalf("unexpected trades: %+v", out.Trades)
	}

	buyerBase, err := clobstate.GetBalance(state, buyerAddr, rules.BaseAssetID)
	if err != nil {
		t.Fatal(err)
	}
	if !buyerBase.Available.Eq(xmath.FromUint64(3)) {
		t.Fatalf("buyer base available = %v, want 3", buyerBase.Available)
	}
	buyerQuote, err := clobstate.GetBalance(state, buyerAddr, rules.QuoteAssetID)
	if err != nil {
		t.Fatal(err)
	}
	if !buyerQuote.Locked.IsZero() || !buyerQuote.Available.Eq(xmath.FromUint64(4)) {
		t.Fatalf("buyer quote = %+v, want locked=0 available=4", buyerQuote)
	}

	order, err := clobstate.GetOrder(state, orderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != clobtypes.StatusCanceled {
		t.Fatalf("order status = %v, want Canceled", order.Status)
	}
}

// TestCancelRestingOrder is seed scenario 4 (§8).
func TestCancelRestingOrder(t *testing.T) {
	state := newMemState()
	rules := testRules()
	marketID := clobtypes.HashFromBytes([]byte("market"))
	domainSep := signing.DomainSeparator(1, clobtypes.HashFromBytes([]byte("venue")), marketID)

	sellerPriv, sellerAddr := genAccount(t)
	orderID := clobtypes.HashFromBytes([]byte("resting-order"))

	if err := clobstate.SetOrder(state, orderID, &clobtypes.Order{
		Owner: sellerAddr, Side: clobtypes.SideSell, Tick: 5,
		QtyRemaining: xmath.FromUint64(7), TIF: clobtypes.TIFGTC, Status: clobtypes.StatusOpen,
	}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetOrderNode(state, orderID, clobtypes.ZeroOrderNode()); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetTickNode(state, marketID, clobtypes.SideSell, 5, &clobtypes.TickNode{
		PrevTick: clobtypes.NoneTick, NextTick: clobtypes.NoneTick, Head: orderID, Tail: orderID,
	}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetMarketBest(state, marketID, &clobtypes.MarketBest{BestBid: clobtypes.NoneTick, BestAsk: 5}); err != nil {
		t.Fatal(err)
	}
	if err := clobstate.SetBalance(state, sellerAddr, rules.BaseAssetID, bal(0, 7)); err != nil {
		t.Fatal(err)
	}

	msg := clobtypes.Message{Kind: clobtypes.MsgCancel, Cancel: &clobtypes.CancelMessage{
		Trader: sellerAddr, Nonce: 1, OrderID: orderID,
	}}
	signed := signMessage(t, sellerPriv, domainSep, msg)

	if _, err := ApplyBatch(state, marketID, rules, domainSep, []*clobtypes.SignedMessage{signed}); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	sellerBase, err := clobstate.GetBalance(state, sellerAddr, rules.BaseAssetID)
	if err != nil {
		t.Fatal(err)
	}
	if !sellerBase.Locked.IsZero() || !sellerBase.Available.Eq(xmath.FromUint64(7)) {
		t.Fatalf("seller base = %+v, want locked=0 available=7", sellerBase)
	}

	order, err := clobstate.GetOrder(state, orderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != clobtypes.StatusCanceled {
		t.Fatalf("order status = %v, want Canceled", order.Status)
	}

	tickNode, err := clobstate.GetTickNode(state, marketID, clobtypes.SideSell, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !tickNode.IsZero() {
		t.Fatalf("tick 5 should be zeroed, got %+v", tickNode)
	}

	best, err := clobstate.GetMarketBest(state, marketID)
	if err != nil {
		t.Fatal(err)
	}
	if best.BestAsk != clobtypes.NoneTick {
		t.Fatalf("best_ask = %d, want NoneTick", best.BestAsk)
	}
}

// TestTickHintMismatchFails is seed scenario 5 (§8): a prev-hint that does
// not corroborate the stored tick list is a hard Invalid error.
func TestTickHintMismatchFails(t *testing.T) {
	state := newMemState()
	rules := testRules()
	marketID := clobtypes.HashFromBytes([]byte("market"))
	domainSep := signing.DomainSeparator(1, clobtypes.HashFromBytes([]byte("venue")), marketID)

	if err := clobstate.SetTickNode(state, marketID, clobtypes.SideBuy, 10, &clobtypes.TickNode{
		PrevTick: clobtypes.NoneTick, NextTick: 99, Head: clobtypes.HashFromBytes([]byte("x")), Tail: clobtypes.HashFromBytes([]byte("x")),
	}); err != nil {
		t.Fatal(err)
	}

	priv, addr := genAccount(t)
	if err := clobstate.SetBalance(state, addr, rules.QuoteAssetID, bal(10, 0)); err != nil {
		t.Fatal(err)
	}
	orderID := clobtypes.HashFromBytes([]byte("new-order"))
	msg := clobtypes.Message{Kind: clobtypes.MsgPlace, Place: &clobtypes.PlaceMessage{
		Trader: addr, Nonce: 1, OrderID: orderID,
		Side: clobtypes.SideBuy, TIF: clobtypes.TIFGTC, Tick: 5, QtyBase: xmath.FromUint64(1),
		PrevTickHint: 10, NextTickHint: 15,
	}}
	signed := signMessage(t, priv, domainSep, msg)

	if _, err := ApplyBatch(state, marketID, rules, domainSep, []*clobtypes.SignedMessage{signed}); err == nil {
		t.Fatal("expected tick hint mismatch to fail")
	}
}

// TestNonceGapFails is seed scenario 6 (§8): the second of two messages
// with a nonce gap fails; the first is processed first.
func TestNonceGapFails(t *testing.T) {
	state := newMemState()
	rules := testRules()
	marketID := clobtypes.HashFromBytes([]byte("market"))
	domainSep := signing.DomainSeparator(1, clobtypes.HashFromBytes([]byte("venue")), marketID)

	priv, addr := genAccount(t)
	if err := clobstate.SetBalance(state, addr, rules.BaseAssetID, bal(10, 0)); err != nil {
		t.Fatal(err)
	}

	first := clobtypes.Message{Kind: clobtypes.MsgPlace, Place: &clobtypes.PlaceMessage{
		Trader: addr, Nonce: 1, OrderID: clobtypes.HashFromBytes([]byte("order-1")),
		Side: clobtypes.SideSell, TIF: clobtypes.TIFGTC, Tick: 1, QtyBase: xmath.FromUint64(1),
		PrevTickHint: clobtypes.NoneTick, NextTickHint: clobtypes.NoneTick,
	}}
	second := clobtypes.Message{Kind: clobtypes.MsgPlace, Place: &clobtypes.PlaceMessage{
		Trader: addr, Nonce: 3, OrderID: clobtypes.HashFromBytes([]byte("order-2")),
		Side: clobtypes.SideSell, TIF: clobtypes.TIFGTC, Tick: 2, QtyBase: xmath.FromUint64(1),
		PrevTickHint: clobtypes.NoneTick, NextTickHint: clobtypes.NoneTick,
	}}

	messages := []*clobtypes.SignedMessage{
		signMessage(t, priv, domainSep, first),
		signMessage(t, priv, domainSep, second),
	}

	if _, err := ApplyBatch(state, marketID, rules, domainSep, messages); err == nil {
		t.Fatal("expected nonce gap to fail the batch")
	}

	nonce, err := clobstate.GetNonce(state, addr)
	if err != nil {
		t.Fatal(err)
	}
	if nonce != 1 {
		t.Fatalf("nonce = %d, want 1 (first message persisted before the gap failed)", nonce)
	}
}
