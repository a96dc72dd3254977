package clobtypes

import (
	"github.com/numo-labs/zkclob-core/pkg/codec"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

// Side is which book side an order rests or crosses on.
type Side uint8

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

// Opposite returns the resting side a Place message on this side matches
// against: a buy crosses the ask book, a sell crosses the bid book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// TimeInForce controls whether an unfilled remainder rests or is canceled.
type TimeInForce uint32

const (
	TIFGTC TimeInForce = 0
	TIFIOC TimeInForce = 1
)

// OrderStatus is the lifecycle state of an Order.
type OrderStatus uint8

const (
	StatusOpen     OrderStatus = 0
	StatusFilled   OrderStatus = 1
	StatusCanceled OrderStatus = 2
)

// Balance is keyed by (account, asset); both fields must stay <= max_balance.
type Balance struct {
	Available *U256
	Locked    *U256
}

func EmptyBalance() *Balance {
	return &Balance{Available: xmath.Zero(), Locked: xmath.Zero()}
}

func (b *Balance) Encode(w *codec.Writer) {
	w.PutFixed(xU256Bytes(b.Available))
	w.PutFixed(xU256Bytes(b.Locked))
}

func DecodeBalance(r *codec.Reader) *Balance {
	return &Balance{
		Available: u256FromFixed(r.GetFixed(32)),
		Locked:    u256FromFixed(r.GetFixed(32)),
	}
}

func (b *Balance) EncodedBytes() []byte {
	w := codec.NewWriter(64)
	b.Encode(w)
	return w.Bytes()
}

// Order is the persistent record for a Place message: either resting (Open)
// or terminal (Filled/Canceled), per §3's lifecycle rule qty_remaining=0 iff
// status != Open.
type Order struct {
	Owner        Address
	Side         Side
	Tick         TickIndex
	QtyRemaining *U256
	TIF          TimeInForce
	Status       OrderStatus
}

func ZeroOrder() *Order {
	return &Order{QtyRemaining: xmath.Zero()}
}

func (o *Order) Encode(w *codec.Writer) {
	w.PutFixed(o.Owner.Bytes())
	w.PutByte(byte(o.Side))
	w.PutI32(o.Tick)
	w.PutFixed(xU256Bytes(o.QtyRemaining))
	w.PutU32(uint32(o.TIF))
	w.PutByte(byte(o.Status))
}

func DecodeOrder(r *codec.Reader) *Order {
	return &Order{
		Owner:        AddressFromBytes(r.GetFixed(20)),
		Side:         Side(r.GetByte()),
		Tick:         r.GetI32(),
		QtyRemaining: u256FromFixed(r.GetFixed(32)),
		TIF:          TimeInForce(r.GetU32()),
		Status:       OrderStatus(r.GetByte()),
	}
}

func (o *Order) EncodedBytes() []byte {
	w := codec.NewWriter(20 + 1 + 4 + 32 + 4 + 1)
	o.Encode(w)
	return w.Bytes()
}

// OrderNode is the doubly-linked list link for an order within its tick.
type OrderNode struct {
	PrevOrderID OrderId
	NextOrderID OrderId
}

func ZeroOrderNode() *OrderNode {
	return &OrderNode{}
}

func (n *OrderNode) Encode(w *codec.Writer) {
	w.PutFixed(n.PrevOrderID.Bytes())
	w.PutFixed(n.NextOrderID.Bytes())
}

func DecodeOrderNode(r *codec.Reader) *OrderNode {
	return &OrderNode{
		PrevOrderID: HashFromBytes(r.GetFixed(32)),
		NextOrderID: HashFromBytes(r.GetFixed(32)),
	}
}

func (n *OrderNode) EncodedBytes() []byte {
	w := codec.NewWriter(64)
	n.Encode(w)
	return w.Bytes()
}

// TickNode is the doubly-linked list link for a tick within a side's tick
// list, plus the head/tail of its own order list.
type TickNode struct {
	PrevTick TickIndex
	NextTick TickIndex
	Head     OrderId
	Tail     OrderId
}

func ZeroTickNode() *TickNode {
	return &TickNode{PrevTick: NoneTick, NextTick: NoneTick}
}

func (t *TickNode) Encode(w *codec.Writer) {
	w.PutI32(t.PrevTick)
	w.PutI32(t.NextTick)
	w.PutFixed(t.Head.Bytes())
	w.PutFixed(t.Tail.Bytes())
}

func DecodeTickNode(r *codec.Reader) *TickNode {
	return &TickNode{
		PrevTick: r.GetI32(),
		NextTick: r.GetI32(),
		Head:     HashFromBytes(r.GetFixed(32)),
		Tail:     HashFromBytes(r.GetFixed(32)),
	}
}

func (t *TickNode) EncodedBytes() []byte {
	w := codec.NewWriter(4 + 4 + 32 + 32)
	t.Encode(w)
	return w.Bytes()
}

func (t *TickNode) IsZero() bool {
	return t.PrevTick == NoneTick && t.NextTick == NoneTick && t.Head.IsZero() && t.Tail.IsZero()
}

// MarketBest tracks the head tick of each side's tick list for a market.
type MarketBest struct {
	BestBid TickIndex
	BestAsk TickIndex
}

func EmptyMarketBest() *MarketBest {
	return &MarketBest{BestBid: NoneTick, BestAsk: NoneTick}
}

func (m *MarketBest) Encode(w *codec.Writer) {
	w.PutI32(m.BestBid)
	w.PutI32(m.BestAsk)
}

func DecodeMarketBest(r *codec.Reader) *MarketBest {
	return &MarketBest{BestBid: r.GetI32(), BestAsk: r.GetI32()}
}

func (m *MarketBest) EncodedBytes() []byte {
	w := codec.NewWriter(8)
	m.Encode(w)
	return w.Bytes()
}

// FeeVault accumulates collected fees for one asset; total is
// monotonically non-decreasing.
type FeeVault struct {
	Total *U256
}

func ZeroFeeVault() *FeeVault {
	return &FeeVault{Total: xmath.Zero()}
}

func (f *FeeVault) Encode(w *codec.Writer) {
	w.PutFixed(xU256Bytes(f.Total))
}

func DecodeFeeVault(r *codec.Reader) *FeeVault {
	return &FeeVault{Total: u256FromFixed(r.GetFixed(32))}
}

func (f *FeeVault) EncodedBytes() []byte {
	w := codec.NewWriter(32)
	f.Encode(w)
	return w.Bytes()
}

// TradeRecord is emitted once per match (§6).
type TradeRecord struct {
	MarketID      Hash
	MakerOrderID  OrderId
	TakerOrderID  OrderId
	Maker         Address
	Taker         Address
	SideTaker     Side
	MakerTick     TickIndex
	QtyBase       *U256
	QuoteAmt      *U256
	TakerFeeQuote *U256
}

func (t *TradeRecord) Encode(w *codec.Writer) {
	w.PutFixed(t.MarketID.Bytes())
	w.PutFixed(t.MakerOrderID.Bytes())
	w.PutFixed(t.TakerOrderID.Bytes())
	w.PutFixed(t.Maker.Bytes())
	w.PutFixed(t.Taker.Bytes())
	w.PutByte(byte(t.SideTaker))
	w.PutI32(t.MakerTick)
	w.PutFixed(xU256Bytes(t.QtyBase))
	w.PutFixed(xU256Bytes(t.QuoteAmt))
	w.PutFixed(xU256Bytes(t.TakerFeeQuote))
}

func (t *TradeRecord) EncodedBytes() []byte {
	w := codec.NewWriter(32*2 + 32 + 20*2 + 1 + 4 + 32*3)
	t.Encode(w)
	return w.Bytes()
}

// FeeTotal is one asset's aggregate fee for the batch (§6); FeeTotals are
// emitted in ascending asset-id byte order.
type FeeTotal struct {
	AssetID  Hash
	TotalFee *U256
}

func (f *FeeTotal) Encode(w *codec.Writer) {
	w.PutFixed(f.AssetID.Bytes())
	w.PutFixed(xU256Bytes(f.TotalFee))
}

func (f *FeeTotal) EncodedBytes() []byte {
	w := codec.NewWriter(64)
	f.Encode(w)
	return w.Bytes()
}
