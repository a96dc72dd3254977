package apiserver

import (
	"encoding/hex"

	"github.com/numo-labs/zkclob-core/pkg/clobstate"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

const maxBookDepth = 10_000

// BuildOrderbookSnapshot walks the doubly-linked tick and order lists
// rooted at the market's MarketBest, following TickNode.NextTick away from
// the best price on each side, to produce a depth read model. Exported so
// the host CLI's inspection tooling can reuse it without an HTTP round trip.
func BuildOrderbookSnapshot(access clobstate.StateAccess, marketID clobtypes.Hash) (*OrderbookSnapshot, error) {
	best, err := clobstate.GetMarketBest(access, marketID)
	if err != nil {
		return nil, err
	}

	bids, err := walkSide(access, marketID, clobtypes.SideBuy, best.BestBid)
	if err != nil {
		return nil, err
	}
	asks, err := walkSide(access, marketID, clobtypes.SideSell, best.BestAsk)
	if err != nil {
		return nil, err
	}

	return &OrderbookSnapshot{
		MarketID: hex.EncodeToString(marketID.Bytes()),
		Bids:     bids,
		Asks:     asks,
	}, nil
}

func walkSide(access clobstate.StateAccess, marketID clobtypes.Hash, side clobtypes.Side, startTick clobtypes.TickIndex) ([]PriceLevel, error) {
	levels := make([]PriceLevel, 0)
	tick := startTick
	for i := 0; tick != clobtypes.NoneTick && i < maxBookDepth; i++ {
		node, err := clobstate.GetTickNode(access, marketID, side, tick)
		if err != nil {
			return nil, err
		}
		total, err := sumTickQty(access, node)
		if err != nil {
			return nil, err
		}
		levels = append(levels, PriceLevel{Tick: tick, QtyBase: total.String()})
		tick = node.NextTick
	}
	return levels, nil
}

func sumTickQty(access clobstate.StateAccess, node *clobtypes.TickNode) (*xmath.U256, error) {
	total := xmath.Zero()
	orderID := node.Head
	for i := 0; !orderID.IsZero() && i < maxBookDepth; i++ {
		order, err := clobstate.GetOrder(access, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			break
		}
		sum, err := xmath.Add(total, order.QtyRemaining)
		if err != nil {
			return nil, err
		}
		total = sum

		link, err := clobstate.GetOrderNode(access, orderID)
		if err != nil {
			return nil, err
		}
		orderID = link.NextOrderID
	}
	return total, nil
}
