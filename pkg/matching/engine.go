// Package matching implements the deterministic batch execution core:
// nonce/signature checks, price-time-priority matching with caller-supplied
// tick-hint validation, balance lock/unlock, fee accounting, and the
// doubly-linked tick/order list maintenance behind it (§4.G).
package matching

import (
	"bytes"
	"sort"

	"github.com/numo-labs/zkclob-core/pkg/clobstate"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/signing"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

// BatchOutput collects everything a batch produces beyond the state mutation
// itself: the ordered trade tape and the per-asset fee totals (§6).
type BatchOutput struct {
	Trades     []*clobtypes.TradeRecord
	FeeTotals  []*clobtypes.FeeTotal
}

type feeLedger struct {
	totals map[clobtypes.Hash]*clobtypes.U256
	order  []clobtypes.Hash
}

func newFeeLedger() *feeLedger {
	return &feeLedger{totals: make(map[clobtypes.Hash]*clobtypes.U256)}
}

func (l *feeLedger) add(asset clobtypes.Hash, amount *clobtypes.U256) error {
	cur, ok := l.totals[asset]
	if !ok {
		cur = xmath.Zero()
		l.totals[asset] = cur
		l.order = append(l.order, asset)
	}
	sum, err := xmath.Add(cur, amount)
	if err != nil {
		return clobtypes.MathErrorf("fee total overflow: %v", err)
	}
	l.totals[asset] = sum
	return nil
}

// toSlice returns the accumulated totals in ascending asset-id byte order,
// the order the spec's fee_totals output commits to (§6).
func (l *feeLedger) toSlice() []*clobtypes.FeeTotal {
	assets := append([]clobtypes.Hash(nil), l.order...)
	sort.Slice(assets, func(i, j int) bool {
		return bytes.Compare(assets[i][:], assets[j][:]) < 0
	})
	out := make([]*clobtypes.FeeTotal, 0, len(assets))
	for _, a := range assets {
		out = append(out, &clobtypes.FeeTotal{AssetID: a, TotalFee: l.totals[a]})
	}
	return out
}

// ApplyBatch executes messages against state in order, mutating balances,
// orders, and the tick/order lists of marketID, and returns the trades and
// fee totals the batch produced. It never reorders or retries a message:
// the first failure aborts the whole batch (§4.G, §7).
func ApplyBatch(
	state clobstate.StateAccess,
	marketID clobtypes.Hash,
	rules *clobtypes.Rules,
	domainSep [32]byte,
	messages []*clobtypes.SignedMessage,
) (*BatchOutput, error) {
	if uint32(len(messages)) > rules.MaxOrdersPerBatch {
		return nil, clobtypes.InvalidErrorf("max_orders_per_batch exceeded")
	}
	if err := rules.CheckFixedFields(); err != nil {
		return nil, err
	}

	var trades []*clobtypes.TradeRecord
	fees := newFeeLedger()

	for _, signed := range messages {
		msg := &signed.Message
		trader := msg.Trader()
		if err := signing.VerifySignature(domainSep, msg, signed.Signature, trader); err != nil {
			return nil, err
		}
		currentNonce, err := clobstate.GetNonce(state, trader)
		if err != nil {
			return nil, err
		}
		if msg.Nonce() != currentNonce+1 {
			return nil, clobtypes.InvalidErrorf("nonce mismatch")
		}
		if err := clobstate.SetNonce(state, trader, msg.Nonce()); err != nil {
			return nil, err
		}

		switch msg.Kind {
		case clobtypes.MsgPlace:
			produced, err := applyPlace(state, marketID, rules, msg.Place, fees)
			if err != nil {
				return nil, err
			}
			trades = append(trades, produced...)
		case clobtypes.MsgCancel:
			if err := applyCancel(state, marketID, rules, msg.Cancel); err != nil {
				return nil, err
			}
		default:
			return nil, clobtypes.InvalidErrorf("unknown message kind %d", msg.Kind)
		}
	}

	return &BatchOutput{Trades: trades, FeeTotals: fees.toSlice()}, nil
}

func ensureBalanceLimit(balance *clobtypes.Balance, maxBalance *clobtypes.U256) error {
	if xmath.Gt(balance.Available, maxBalance) || xmath.Gt(balance.Locked, maxBalance) {
		return clobtypes.InvalidErrorf("balance exceeds max_balance")
	}
	return nil
}

func applyPlace(
	state clobstate.StateAccess,
	marketID clobtypes.Hash,
	rules *clobtypes.Rules,
	p *clobtypes.PlaceMessage,
	fees *feeLedger,
) ([]*clobtypes.TradeRecord, error) {
	if existing, err := clobstate.GetOrder(state, p.OrderID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, clobtypes.InvalidErrorf("order id already exists")
	}
	if p.QtyBase.IsZero() {
		return nil, clobtypes.InvalidErrorf("qty_base zero")
	}
	if err := signing.CheckLotSize(p.QtyBase, rules.LotSize); err != nil {
		return nil, err
	}
	limitPrice, err := signing.PriceFromTick(p.Tick, rules.TickSize)
	if err != nil {
		return nil, err
	}
	remaining := p.QtyBase

	balanceQuote, err := clobstate.GetBalance(state, p.Trader, rules.QuoteAssetID)
	if err != nil {
		return nil, err
	}
	balanceBase, err := clobstate.GetBalance(state, p.Trader, rules.BaseAssetID)
	if err != nil {
		return nil, err
	}

	switch p.Side {
	case clobtypes.SideBuy:
		lockQuote, err := xmath.MulDivUp(limitPrice, p.QtyBase, rules.PriceScale)
		if err != nil {
			return nil, clobtypes.MathErrorf("lock quote: %v", err)
		}
		if xmath.Gt(lockQuote, balanceQuote.Available) {
			return nil, clobtypes.InvalidErrorf("insufficient quote balance")
		}
		balanceQuote.Available, _ = xmath.Sub(balanceQuote.Available, lockQuote)
		balanceQuote.Locked, _ = xmath.Add(balanceQuote.Locked, lockQuote)
		if err := clobstate.SetBalance(state, p.Trader, rules.QuoteAssetID, balanceQuote); err != nil {
			return nil, err
		}
	case clobtypes.SideSell:
		if xmath.Gt(p.QtyBase, balanceBase.Available) {
			return nil, clobtypes.InvalidErrorf("insufficient base balance")
		}
		balanceBase.Available, _ = xmath.Sub(balanceBase.Available, p.QtyBase)
		balanceBase.Locked, _ = xmath.Add(balanceBase.Locked, p.QtyBase)
		if err := clobstate.SetBalance(state, p.Trader, rules.BaseAssetID, balanceBase); err != nil {
			return nil, err
		}
	}

	best, err := clobstate.GetMarketBest(state, marketID)
	if err != nil {
		return nil, err
	}

	var trades []*clobtypes.TradeRecord
	matches := uint32(0)

	for {
		currentTick := best.BestAsk
		if p.Side == clobtypes.SideSell {
			currentTick = best.BestBid
		}
		if currentTick == clobtypes.NoneTick {
			break
		}
		tickPrice, err := signing.PriceFromTick(currentTick, rules.TickSize)
		if err != nil {
			return nil, err
		}
		priceOK := !xmath.Gt(tickPrice, limitPrice)
		if p.Side == clobtypes.SideSell {
			priceOK = !xmath.Gt(limitPrice, tickPrice)
		}
		if !priceOK || remaining.IsZero() {
			break
		}

		tickNode, err := clobstate.GetTickNode(state, marketID, p.Side.Opposite(), currentTick)
		if err != nil {
			return nil, err
		}
		for tickNode.Head != clobtypes.NoneOrder && !remaining.IsZero() {
			if matches >= rules.MaxMatchesPerOrder {
				return nil, clobtypes.InvalidErrorf("max_matches_per_order exceeded")
			}
			matches++

			makerOrderID := tickNode.Head
			makerOrder, err := clobstate.GetOrder(state, makerOrderID)
			if err != nil {
				return nil, err
			}
			if makerOrder == nil {
				return nil, clobtypes.StateErrorf("maker order missing")
			}
			if makerOrder.Status != clobtypes.StatusOpen {
				return nil, clobtypes.InvalidErrorf("maker order not open")
			}
			if makerOrder.Side == p.Side {
				return nil, clobtypes.InvalidErrorf("maker side mismatch")
			}

			fillQty := remaining
			if xmath.Gt(remaining, makerOrder.QtyRemaining) {
				fillQty = makerOrder.QtyRemaining
			}
			quoteAmt, err := xmath.MulDivDown(tickPrice, fillQty, rules.PriceScale)
			if err != nil {
				return nil, clobtypes.MathErrorf("quote amount: %v", err)
			}
			fee, err := xmath.MulDivUp(quoteAmt, xmath.FromUint64(uint64(rules.TakerFeeBps)), xmath.FromUint64(10_000))
			if err != nil {
				return nil, clobtypes.MathErrorf("taker fee: %v", err)
			}

			if err := settleFill(state, rules, p, makerOrder, fillQty, quoteAmt, fee); err != nil {
				return nil, err
			}

			if err := fees.add(rules.QuoteAssetID, fee); err != nil {
				return nil, err
			}
			feeVault, err := clobstate.GetFeeVault(state, rules.QuoteAssetID)
			if err != nil {
				return nil, err
			}
			feeVault.Total, err = xmath.Add(feeVault.Total, fee)
			if err != nil {
				return nil, clobtypes.MathErrorf("fee vault overflow: %v", err)
			}
			if err := clobstate.SetFeeVault(state, rules.QuoteAssetID, feeVault); err != nil {
				return nil, err
			}

			makerOrder.QtyRemaining, _ = xmath.Sub(makerOrder.QtyRemaining, fillQty)
			if makerOrder.QtyRemaining.IsZero() {
				makerOrder.Status = clobtypes.StatusFilled
			}
			if err := clobstate.SetOrder(state, makerOrderID, makerOrder); err != nil {
				return nil, err
			}

			trades = append(trades, &clobtypes.TradeRecord{
				MarketID:      marketID,
				MakerOrderID:  makerOrderID,
				TakerOrderID:  p.OrderID,
				Maker:         makerOrder.Owner,
				Taker:         p.Trader,
				SideTaker:     p.Side,
				MakerTick:     makerOrder.Tick,
				QtyBase:       fillQty,
				QuoteAmt:      quoteAmt,
				TakerFeeQuote: fee,
			})

			remaining, _ = xmath.Sub(remaining, fillQty)

			if makerOrder.Status == clobtypes.StatusFilled {
				if err := popFilledMaker(state, makerOrderID, tickNode); err != nil {
					return nil, err
				}
			}
		}

		if tickNode.Head == clobtypes.NoneOrder {
			if err := retireEmptyTick(state, marketID, p.Side, currentTick, tickNode, best); err != nil {
				return nil, err
			}
		} else if err := clobstate.SetTickNode(state, marketID, p.Side.Opposite(), currentTick, tickNode); err != nil {
			return nil, err
		}

		if remaining.IsZero() {
			break
		}
	}

	if err := finishPlace(state, marketID, rules, p, remaining, limitPrice, best); err != nil {
		return nil, err
	}

	return trades, nil
}

// settleFill moves locked/available balances for one maker/taker fill,
// checking max_balance on every touched balance before committing any of
// them (§4.G).
func settleFill(
	state clobstate.StateAccess,
	rules *clobtypes.Rules,
	p *clobtypes.PlaceMessage,
	makerOrder *clobtypes.Order,
	fillQty, quoteAmt, fee *clobtypes.U256,
) error {
	takerQuote, err := clobstate.GetBalance(state, p.Trader, rules.QuoteAssetID)
	if err != nil {
		return err
	}
	takerBase, err := clobstate.GetBalance(state, p.Trader, rules.BaseAssetID)
	if err != nil {
		return err
	}
	makerBase, err := clobstate.GetBalance(state, makerOrder.Owner, rules.BaseAssetID)
	if err != nil {
		return err
	}
	makerQuote, err := clobstate.GetBalance(state, makerOrder.Owner, rules.QuoteAssetID)
	if err != nil {
		return err
	}

	switch p.Side {
	case clobtypes.SideBuy:
		spend, err := xmath.Add(quoteAmt, fee)
		if err != nil {
			return clobtypes.MathErrorf("spend overflow: %v", err)
		}
		if xmath.Gt(spend, takerQuote.Locked) {
			return clobtypes.InvalidErrorf("taker locked quote insufficient")
		}
		if xmath.Gt(fillQty, makerBase.Locked) {
			return clobtypes.InvalidErrorf("maker locked base insufficient")
		}
		takerQuote.Locked, _ = xmath.Sub(takerQuote.Locked, spend)
		takerBase.Available, _ = xmath.Add(takerBase.Available, fillQty)
		makerBase.Locked, _ = xmath.Sub(makerBase.Locked, fillQty)
		makerQuote.Available, _ = xmath.Add(makerQuote.Available, quoteAmt)
	case clobtypes.SideSell:
		if xmath.Gt(fillQty, takerBase.Locked) {
			return clobtypes.InvalidErrorf("taker locked base insufficient")
		}
		if xmath.Gt(quoteAmt, makerQuote.Locked) {
			return clobtypes.InvalidErrorf("maker locked quote insufficient")
		}
		takerBase.Locked, _ = xmath.Sub(takerBase.Locked, fillQty)
		receive, err := xmath.Sub(quoteAmt, fee)
		if err != nil {
			return clobtypes.MathErrorf("fee exceeds quote amount")
		}
		takerQuote.Available, _ = xmath.Add(takerQuote.Available, receive)
		makerQuote.Locked, _ = xmath.Sub(makerQuote.Locked, quoteAmt)
		makerBase.Available, _ = xmath.Add(makerBase.Available, fillQty)
	}

	for _, b := range []*clobtypes.Balance{takerQuote, takerBase, makerBase, makerQuote} {
		if err := ensureBalanceLimit(b, rules.MaxBalance); err != nil {
			return err
		}
	}

	if err := clobstate.SetBalance(state, p.Trader, rules.QuoteAssetID, takerQuote); err != nil {
		return err
	}
	if err := clobstate.SetBalance(state, p.Trader, rules.BaseAssetID, takerBase); err != nil {
		return err
	}
	if err := clobstate.SetBalance(state, makerOrder.Owner, rules.BaseAssetID, makerBase); err != nil {
		return err
	}
	return clobstate.SetBalance(state, makerOrder.Owner, rules.QuoteAssetID, makerQuote)
}

// popFilledMaker unlinks a fully-filled maker order from the head of its
// tick's order list.
func popFilledMaker(state clobstate.StateAccess, makerOrderID clobtypes.OrderId, tickNode *clobtypes.TickNode) error {
	makerNode, err := clobstate.GetOrderNode(state, makerOrderID)
	if err != nil {
		return err
	}
	nextID := makerNode.NextOrderID
	tickNode.Head = nextID
	if nextID == clobtypes.NoneOrder {
		tickNode.Tail = clobtypes.NoneOrder
	} else {
		nextNode, err := clobstate.GetOrderNode(state, nextID)
		if err != nil {
			return err
		}
		nextNode.PrevOrderID = clobtypes.NoneOrder
		if err := clobstate.SetOrderNode(state, nextID, nextNode); err != nil {
			return err
		}
	}
	return clobstate.SetOrderNode(state, makerOrderID, clobtypes.ZeroOrderNode())
}

// retireEmptyTick splices a now-empty tick out of its side's tick list and
// updates MarketBest if it was the inside quote.
func retireEmptyTick(
	state clobstate.StateAccess,
	marketID clobtypes.Hash,
	takerSide clobtypes.Side,
	tick clobtypes.TickIndex,
	tickNode *clobtypes.TickNode,
	best *clobtypes.MarketBest,
) error {
	restingSide := takerSide.Opposite()
	prevTick := tickNode.PrevTick
	nextTick := tickNode.NextTick
	if prevTick != clobtypes.NoneTick {
		prevNode, err := clobstate.GetTickNode(state, marketID, restingSide, prevTick)
		if err != nil {
			return err
		}
		prevNode.NextTick = nextTick
		if err := clobstate.SetTickNode(state, marketID, restingSide, prevTick, prevNode); err != nil {
			return err
		}
	}
	if nextTick != clobtypes.NoneTick {
		nextNode, err := clobstate.GetTickNode(state, marketID, restingSide, nextTick)
		if err != nil {
			return err
		}
		nextNode.PrevTick = prevTick
		if err := clobstate.SetTickNode(state, marketID, restingSide, nextTick, nextNode); err != nil {
			return err
		}
	}
	switch takerSide {
	case clobtypes.SideBuy:
		if best.BestAsk == tick {
			best.BestAsk = nextTick
		}
	case clobtypes.SideSell:
		if best.BestBid == tick {
			best.BestBid = nextTick
		}
	}
	if err := clobstate.SetTickNode(state, marketID, restingSide, tick, clobtypes.ZeroTickNode()); err != nil {
		return err
	}
	return clobstate.SetMarketBest(state, marketID, best)
}

// finishPlace applies the IOC/GTC post-match disposition: IOC cancels and
// releases any unfilled remainder, GTC rests it (inserting a new tick via
// the caller-supplied, engine-verified hints when needed) (§4.G).
func finishPlace(
	state clobstate.StateAccess,
	marketID clobtypes.Hash,
	rules *clobtypes.Rules,
	p *clobtypes.PlaceMessage,
	remaining *clobtypes.U256,
	limitPrice *clobtypes.U256,
	best *clobtypes.MarketBest,
) error {
	switch p.TIF {
	case clobtypes.TIFIOC:
		if !remaining.IsZero() {
			if err := releaseRemaining(state, p.Trader, p.Side, remaining, limitPrice, rules); err != nil {
				return err
			}
		}
		status := clobtypes.StatusCanceled
		if remaining.IsZero() {
			status = clobtypes.StatusFilled
		}
		return clobstate.SetOrder(state, p.OrderID, &clobtypes.Order{
			Owner: p.Trader, Side: p.Side, Tick: p.Tick,
			QtyRemaining: xmath.Zero(), TIF: p.TIF, Status: status,
		})
	case clobtypes.TIFGTC:
		if remaining.IsZero() {
			return clobstate.SetOrder(state, p.OrderID, &clobtypes.Order{
				Owner: p.Trader, Side: p.Side, Tick: p.Tick,
				QtyRemaining: xmath.Zero(), TIF: p.TIF, Status: clobtypes.StatusFilled,
			})
		}
		return placeResting(state, marketID, p, remaining, best)
	default:
		return clobtypes.InvalidErrorf("unknown time in force %d", p.TIF)
	}
}

func releaseRemaining(
	state clobstate.StateAccess,
	trader clobtypes.Address,
	side clobtypes.Side,
	remaining, price *clobtypes.U256,
	rules *clobtypes.Rules,
) error {
	switch side {
	case clobtypes.SideBuy:
		release, err := xmath.MulDivUp(price, remaining, rules.PriceScale)
		if err != nil {
			return clobtypes.MathErrorf("release quote: %v", err)
		}
		bal, err := clobstate.GetBalance(state, trader, rules.QuoteAssetID)
		if err != nil {
			return err
		}
		if xmath.Gt(release, bal.Locked) {
			return clobtypes.InvalidErrorf("locked quote insufficient")
		}
		bal.Locked, _ = xmath.Sub(bal.Locked, release)
		bal.Available, _ = xmath.Add(bal.Available, release)
		if err := ensureBalanceLimit(bal, rules.MaxBalance); err != nil {
			return err
		}
		return clobstate.SetBalance(state, trader, rules.QuoteAssetID, bal)
	case clobtypes.SideSell:
		bal, err := clobstate.GetBalance(state, trader, rules.BaseAssetID)
		if err != nil {
			return err
		}
		if xmath.Gt(remaining, bal.Locked) {
			return clobtypes.InvalidErrorf("locked base insufficient")
		}
		bal.Locked, _ = xmath.Sub(bal.Locked, remaining)
		bal.Available, _ = xmath.Add(bal.Available, remaining)
		if err := ensureBalanceLimit(bal, rules.MaxBalance); err != nil {
			return err
		}
		return clobstate.SetBalance(state, trader, rules.BaseAssetID, bal)
	default:
		return clobtypes.InvalidErrorf("unknown side %d", side)
	}
}

func placeResting(
	state clobstate.StateAccess,
	marketID clobtypes.Hash,
	p *clobtypes.PlaceMessage,
	qtyRemaining *clobtypes.U256,
	best *clobtypes.MarketBest,
) error {
	tickNode, err := clobstate.GetTickNode(state, marketID, p.Side, p.Tick)
	if err != nil {
		return err
	}
	active := tickNode.Head != clobtypes.NoneOrder
	oldTail := clobtypes.NoneOrder
	if active {
		oldTail = tickNode.Tail
	}

	if !active {
		if err := verifyTickHints(state, marketID, p.Side, p.Tick, p.PrevTickHint, p.NextTickHint, best); err != nil {
			return err
		}
		tickNode.PrevTick = p.PrevTickHint
		tickNode.NextTick = p.NextTickHint
		tickNode.Head = p.OrderID
		tickNode.Tail = p.OrderID

		if p.PrevTickHint != clobtypes.NoneTick {
			prevNode, err := clobstate.GetTickNode(state, marketID, p.Side, p.PrevTickHint)
			if err != nil {
				return err
			}
			prevNode.NextTick = p.Tick
			if err := clobstate.SetTickNode(state, marketID, p.Side, p.PrevTickHint, prevNode); err != nil {
				return err
			}
		}
		if p.NextTickHint != clobtypes.NoneTick {
			nextNode, err := clobstate.GetTickNode(state, marketID, p.Side, p.NextTickHint)
			if err != nil {
				return err
			}
			nextNode.PrevTick = p.Tick
			if err := clobstate.SetTickNode(state, marketID, p.Side, p.NextTickHint, nextNode); err != nil {
				return err
			}
		}
		switch p.Side {
		case clobtypes.SideBuy:
			if best.BestBid == clobtypes.NoneTick || p.Tick > best.BestBid {
				best.BestBid = p.Tick
			}
		case clobtypes.SideSell:
			if best.BestAsk == clobtypes.NoneTick || p.Tick < best.BestAsk {
				best.BestAsk = p.Tick
			}
		}
		if err := clobstate.SetMarketBest(state, marketID, best); err != nil {
			return err
		}
	} else {
		tailID := tickNode.Tail
		if tailID != clobtypes.NoneOrder {
			tailNode, err := clobstate.GetOrderNode(state, tailID)
			if err != nil {
				return err
			}
			tailNode.NextOrderID = p.OrderID
			if err := clobstate.SetOrderNode(state, tailID, tailNode); err != nil {
				return err
			}
		}
		tickNode.Tail = p.OrderID
	}

	if err := clobstate.SetTickNode(state, marketID, p.Side, p.Tick, tickNode); err != nil {
		return err
	}
	if err := clobstate.SetOrder(state, p.OrderID, &clobtypes.Order{
		Owner: p.Trader, Side: p.Side, Tick: p.Tick,
		QtyRemaining: qtyRemaining, TIF: p.TIF, Status: clobtypes.StatusOpen,
	}); err != nil {
		return err
	}
	return clobstate.SetOrderNode(state, p.OrderID, &clobtypes.OrderNode{
		PrevOrderID: oldTail, NextOrderID: clobtypes.NoneOrder,
	})
}

// verifyTickHints requires the caller-supplied prev/next tick hints to be
// the true neighbors a fresh tick would have in the list, in strict price
// order; the engine never trusts a hint it cannot corroborate against
// existing state (§4.G, §5).
func verifyTickHints(
	state clobstate.StateAccess,
	marketID clobtypes.Hash,
	side clobtypes.Side,
	tick clobtypes.TickIndex,
	prevTick, nextTick clobtypes.TickIndex,
	best *clobtypes.MarketBest,
) error {
	if prevTick != clobtypes.NoneTick {
		prevNode, err := clobstate.GetTickNode(state, marketID, side, prevTick)
		if err != nil {
			return err
		}
		if prevNode.NextTick != nextTick {
			return clobtypes.InvalidErrorf("prev tick hint mismatch")
		}
		if side == clobtypes.SideBuy && prevTick <= tick {
			return clobtypes.InvalidErrorf("bid prev tick order")
		}
		if side == clobtypes.SideSell && prevTick >= tick {
			return clobtypes.InvalidErrorf("ask prev tick order")
		}
	} else {
		switch side {
		case clobtypes.SideBuy:
			if best.BestBid != nextTick && best.BestBid != clobtypes.NoneTick {
				return clobtypes.InvalidErrorf("best bid mismatch")
			}
		case clobtypes.SideSell:
			if best.BestAsk != nextTick && best.BestAsk != clobtypes.NoneTick {
				return clobtypes.InvalidErrorf("best ask mismatch")
			}
		}
	}
	if nextTick != clobtypes.NoneTick {
		nextNode, err := clobstate.GetTickNode(state, marketID, side, nextTick)
		if err != nil {
			return err
		}
		if nextNode.PrevTick != prevTick {
			return clobtypes.InvalidErrorf("next tick hint mismatch")
		}
		if side == clobtypes.SideBuy && nextTick >= tick {
			return clobtypes.InvalidErrorf("bid next tick order")
		}
		if side == clobtypes.SideSell && nextTick <= tick {
			return clobtypes.InvalidErrorf("ask next tick order")
		}
	}
	return nil
}

func applyCancel(
	state clobstate.StateAccess,
	marketID clobtypes.Hash,
	rules *clobtypes.Rules,
	c *clobtypes.CancelMessage,
) error {
	order, err := clobstate.GetOrder(state, c.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return clobtypes.InvalidErrorf("order missing")
	}
	if order.Owner != c.Trader {
		return clobtypes.InvalidErrorf("cancel owner mismatch")
	}
	if order.Status != clobtypes.StatusOpen {
		return clobtypes.InvalidErrorf("order not open")
	}
	price, err := signing.PriceFromTick(order.Tick, rules.TickSize)
	if err != nil {
		return err
	}
	if err := releaseRemaining(state, c.Trader, order.Side, order.QtyRemaining, price, rules); err != nil {
		return err
	}
	order.QtyRemaining = xmath.Zero()
	order.Status = clobtypes.StatusCanceled
	if err := clobstate.SetOrder(state, c.OrderID, order); err != nil {
		return err
	}
	return removeFromBook(state, marketID, order.Side, order.Tick, c.OrderID)
}

// removeFromBook splices a resting order out of its tick's order list and,
// if that empties the tick, out of the side's tick list too.
func removeFromBook(
	state clobstate.StateAccess,
	marketID clobtypes.Hash,
	side clobtypes.Side,
	tick clobtypes.TickIndex,
	orderID clobtypes.OrderId,
) error {
	tickNode, err := clobstate.GetTickNode(state, marketID, side, tick)
	if err != nil {
		return err
	}
	orderNode, err := clobstate.GetOrderNode(state, orderID)
	if err != nil {
		return err
	}
	prevID := orderNode.PrevOrderID
	nextID := orderNode.NextOrderID

	if prevID != clobtypes.NoneOrder {
		prevNode, err := clobstate.GetOrderNode(state, prevID)
		if err != nil {
			return err
		}
		prevNode.NextOrderID = nextID
		if err := clobstate.SetOrderNode(state, prevID, prevNode); err != nil {
			return err
		}
	} else {
		tickNode.Head = nextID
	}
	if nextID != clobtypes.NoneOrder {
		nextNode, err := clobstate.GetOrderNode(state, nextID)
		if err != nil {
			return err
		}
		nextNode.PrevOrderID = prevID
		if err := clobstate.SetOrderNode(state, nextID, nextNode); err != nil {
			return err
		}
	} else {
		tickNode.Tail = prevID
	}

	if err := clobstate.SetOrderNode(state, orderID, clobtypes.ZeroOrderNode()); err != nil {
		return err
	}

	if tickNode.Head == clobtypes.NoneOrder {
		prevTick := tickNode.PrevTick
		nextTick := tickNode.NextTick
		if prevTick != clobtypes.NoneTick {
			prevTickNode, err := clobstate.GetTickNode(state, marketID, side, prevTick)
			if err != nil {
				return err
			}
			prevTickNode.NextTick = nextTick
			if err := clobstate.SetTickNode(state, marketID, side, prevTick, prevTickNode); err != nil {
				return err
			}
		}
		if nextTick != clobtypes.NoneTick {
			nextTickNode, err := clobstate.GetTickNode(state, marketID, side, nextTick)
			if err != nil {
				return err
			}
			nextTickNode.PrevTick = prevTick
			if err := clobstate.SetTickNode(state, marketID, side, nextTick, nextTickNode); err != nil {
				return err
			}
		}
		best, err := clobstate.GetMarketBest(state, marketID)
		if err != nil {
			return err
		}
		switch side {
		case clobtypes.SideBuy:
			if best.BestBid == tick {
				best.BestBid = nextTick
			}
		case clobtypes.SideSell:
			if best.BestAsk == tick {
				best.BestAsk = nextTick
			}
		}
		if err := clobstate.SetTickNode(state, marketID, side, tick, clobtypes.ZeroTickNode()); err != nil {
			return err
		}
		return clobstate.SetMarketBest(state, marketID, best)
	}
	return clobstate.SetTickNode(state, marketID, side, tick, tickNode)
}
