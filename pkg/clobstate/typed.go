package clobstate

import (
	"encoding/binary"

	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/codec"
)

// GetBalance returns the empty balance (0 available, 0 locked) when absent.
func GetBalance(s StateAccess, account clobtypes.Address, asset clobtypes.Hash) (*clobtypes.Balance, error) {
	value, err := s.ReadValue(KeyBalance(account, asset))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return clobtypes.EmptyBalance(), nil
	}
	r := codec.NewReader(value)
	b := clobtypes.DecodeBalance(r)
	if err := r.Finish(); err != nil {
		return nil, clobtypes.DecodeErrorf("balance: %v", err)
	}
	return b, nil
}

func SetBalance(s StateAccess, account clobtypes.Address, asset clobtypes.Hash, b *clobtypes.Balance) error {
	return s.WriteValue(KeyBalance(account, asset), b.EncodedBytes())
}

// GetNonce returns 0 when absent.
func GetNonce(s StateAccess, account clobtypes.Address) (uint64, error) {
	value, err := s.ReadValue(KeyNonce(account))
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	if len(value) != 8 {
		return 0, clobtypes.DecodeErrorf("nonce: invalid length %d", len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

func SetNonce(s StateAccess, account clobtypes.Address, nonce uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], nonce)
	return s.WriteValue(KeyNonce(account), b[:])
}

// GetOrder returns (nil, nil) when absent.
func GetOrder(s StateAccess, orderID clobtypes.OrderId) (*clobtypes.Order, error) {
	value, err := s.ReadValue(KeyOrder(orderID))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	r := codec.NewReader(value)
	o := clobtypes.DecodeOrder(r)
	if err := r.Finish(); err != nil {
		return nil, clobtypes.DecodeErrorf("order: %v", err)
	}
	return o, nil
}

func SetOrder(s StateAccess, orderID clobtypes.OrderId, o *clobtypes.Order) error {
	return s.WriteValue(KeyOrder(orderID), o.EncodedBytes())
}

func GetOrderNode(s StateAccess, orderID clobtypes.OrderId) (*clobtypes.OrderNode, error) {
	value, err := s.ReadValue(KeyOrderNode(orderID))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return clobtypes.ZeroOrderNode(), nil
	}
	r := codec.NewReader(value)
	n := clobtypes.DecodeOrderNode(r)
	if err := r.Finish(); err != nil {
		return nil, clobtypes.DecodeErrorf("order node: %v", err)
	}
	return n, nil
}

func SetOrderNode(s StateAccess, orderID clobtypes.OrderId, n *clobtypes.OrderNode) error {
	return s.WriteValue(KeyOrderNode(orderID), n.EncodedBytes())
}

func GetTickNode(s StateAccess, market clobtypes.Hash, side clobtypes.Side, tick clobtypes.TickIndex) (*clobtypes.TickNode, error) {
	value, err := s.ReadValue(KeyTickNode(market, side, tick))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return clobtypes.ZeroTickNode(), nil
	}
	r := codec.NewReader(value)
	n := clobtypes.DecodeTickNode(r)
	if err := r.Finish(); err != nil {
		return nil, clobtypes.DecodeErrorf("tick node: %v", err)
	}
	return n, nil
}

func SetTickNode(s StateAccess, market clobtypes.Hash, side clobtypes.Side, tick clobtypes.TickIndex, n *clobtypes.TickNode) error {
	return s.WriteValue(KeyTickNode(market, side, tick), n.EncodedBytes())
}

func GetMarketBest(s StateAccess, market clobtypes.Hash) (*clobtypes.MarketBest, error) {
	value, err := s.ReadValue(KeyMarketBest(market))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return clobtypes.EmptyMarketBest(), nil
	}
	r := codec.NewReader(value)
	m := clobtypes.DecodeMarketBest(r)
	if err := r.Finish(); err != nil {
		return nil, clobtypes.DecodeErrorf("market best: %v", err)
	}
	return m, nil
}

func SetMarketBest(s StateAccess, market clobtypes.Hash, m *clobtypes.MarketBest) error {
	return s.WriteValue(KeyMarketBest(market), m.EncodedBytes())
}

func GetFeeVault(s StateAccess, asset clobtypes.Hash) (*clobtypes.FeeVault, error) {
	value, err := s.ReadValue(KeyFeeVault(asset))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return clobtypes.ZeroFeeVault(), nil
	}
	r := codec.NewReader(value)
	f := clobtypes.DecodeFeeVault(r)
	if err := r.Finish(); err != nil {
		return nil, clobtypes.DecodeErrorf("fee vault: %v", err)
	}
	return f, nil
}

func SetFeeVault(s StateAccess, asset clobtypes.Hash, f *clobtypes.FeeVault) error {
	return s.WriteValue(KeyFeeVault(asset), f.EncodedBytes())
}
