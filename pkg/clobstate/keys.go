// Package clobstate derives the authenticated storage keys for every
// persistent entity (§3) and wraps proof-consuming/proof-generating access
// to the tree behind a single StateAccess interface (§4.E).
package clobstate

import (
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/codec"
	"github.com/numo-labs/zkclob-core/pkg/xhash"
)

func KeyBalance(account clobtypes.Address, asset clobtypes.Hash) [32]byte {
	return xhash.Sum256(clobtypes.NSBalance[:], []byte{clobtypes.KeySeparator}, account.Bytes(), asset.Bytes())
}

func KeyNonce(account clobtypes.Address) [32]byte {
	return xhash.Sum256(clobtypes.NSNonce[:], []byte{clobtypes.KeySeparator}, account.Bytes())
}

func KeyOrder(orderID clobtypes.OrderId) [32]byte {
	return xhash.Sum256(clobtypes.NSOrder[:], []byte{clobtypes.KeySeparator}, orderID.Bytes())
}

func KeyOrderNode(orderID clobtypes.OrderId) [32]byte {
	return xhash.Sum256(clobtypes.NSOrderNode[:], []byte{clobtypes.KeySeparator}, orderID.Bytes())
}

func KeyTickNode(market clobtypes.Hash, side clobtypes.Side, tick clobtypes.TickIndex) [32]byte {
	w := codec.NewWriter(5)
	w.PutI32(tick)
	return xhash.Sum256(clobtypes.NSTickNode[:], []byte{clobtypes.KeySeparator}, market.Bytes(), []byte{byte(side)}, w.Bytes())
}

func KeyMarketBest(market clobtypes.Hash) [32]byte {
	return xhash.Sum256(clobtypes.NSMarketBest[:], []byte{clobtypes.KeySeparator}, market.Bytes())
}

func KeyFeeVault(asset clobtypes.Hash) [32]byte {
	return xhash.Sum256(clobtypes.NSFeeVault[:], []byte{clobtypes.KeySeparator}, asset.Bytes())
}
