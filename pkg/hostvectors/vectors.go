// Package hostvectors loads the JSON batch-vector format a host driver
// consumes: a market's starting balances/orders/nonces/book state plus an
// ordered batch of place/cancel messages, each either pre-signed or
// auto-signed inline from a private key, grounded on the reference host
// driver's input schema (§4.H, §10).
package hostvectors

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/numo-labs/zkclob-core/pkg/clobstate"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/merkle"
	"github.com/numo-labs/zkclob-core/pkg/signing"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

type InputFile struct {
	ChainID        uint64        `json:"chain_id"`
	VenueID        string        `json:"venue_id"`
	MarketID       string        `json:"market_id"`
	Rules          RulesJSON     `json:"rules"`
	State          StateJSON     `json:"state"`
	Batch          []MessageJSON `json:"batch"`
	BatchSeq       uint64        `json:"batch_seq"`
	BatchTimestamp uint64        `json:"batch_timestamp"`
	DACommitment   string        `json:"da_commitment"`
}

type RulesJSON struct {
	BaseAssetID        string `json:"base_asset_id"`
	QuoteAssetID       string `json:"quote_asset_id"`
	PriceScale         string `json:"price_scale"`
	TickSize           string `json:"tick_size"`
	LotSize            string `json:"lot_size"`
	TakerFeeBps        uint32 `json:"taker_fee_bps"`
	MakerFeeBps        uint32 `json:"maker_fee_bps"`
	MaxOrdersPerBatch  uint32 `json:"max_orders_per_batch"`
	MaxMatchesPerOrder uint32 `json:"max_matches_per_order"`
	MaxBalance         string `json:"max_balance"`
}

type StateJSON struct {
	Balances   []BalanceJSON   `json:"balances"`
	Nonces     []NonceJSON     `json:"nonces"`
	Orders     []OrderJSON     `json:"orders"`
	OrderNodes []OrderNodeJSON `json:"order_nodes"`
	TickNodes  []TickNodeJSON  `json:"tick_nodes"`
	MarketBest *MarketBestJSON `json:"market_best,omitempty"`
	FeeVaults  []FeeVaultJSON  `json:"fee_vaults"`
}

type BalanceJSON struct {
	Account   string `json:"account"`
	Asset     string `json:"asset"`
	Available string `json:"available"`
	Locked    string `json:"locked"`
}

type NonceJSON struct {
	Account string `json:"account"`
	Nonce   uint64 `json:"nonce"`
}

type OrderJSON struct {
	OrderID      string `json:"order_id"`
	Owner        string `json:"owner"`
	Side         uint8  `json:"side"`
	Tick         int32  `json:"tick"`
	QtyRemaining string `json:"qty_remaining"`
	TIF          uint32 `json:"tif"`
	Status       uint8  `json:"status"`
}

type OrderNodeJSON struct {
	OrderID string `json:"order_id"`
	Prev    string `json:"prev"`
	Next    string `json:"next"`
}

type TickNodeJSON struct {
	Side uint8  `json:"side"`
	Tick int32  `json:"tick"`
	Prev int32  `json:"prev"`
	Next int32  `json:"next"`
	Head string `json:"head"`
	Tail string `json:"tail"`
}

type MarketBestJSON struct {
	BestBid int32 `json:"best_bid"`
	BestAsk int32 `json:"best_ask"`
}

type FeeVaultJSON struct {
	Asset string `json:"asset"`
	Total string `json:"total"`
}

// MessageJSON is one batch entry. Side/TIF/TickIndex/QtyBase are required
// for "place" and absent for "cancel". Signature is either a 65-byte hex
// string or the literal "auto", which requires PrivateKey to sign inline.
type MessageJSON struct {
	Kind         string  `json:"kind"`
	Trader       string  `json:"trader"`
	Nonce        uint64  `json:"nonce"`
	OrderID      string  `json:"order_id"`
	Side         *uint8  `json:"side,omitempty"`
	TIF          *uint32 `json:"tif,omitempty"`
	TickIndex    *int32  `json:"tick_index,omitempty"`
	QtyBase      *string `json:"qty_base,omitempty"`
	PrevTickHint *int32  `json:"prev_tick_hint,omitempty"`
	NextTickHint *int32  `json:"next_tick_hint,omitempty"`
	Signature    string  `json:"signature"`
	PrivateKey   *string `json:"private_key,omitempty"`
}

type OutputFile struct {
	PrevRoot        string `json:"prev_root"`
	NewRoot         string `json:"new_root"`
	BatchDigest     string `json:"batch_digest"`
	RulesHash       string `json:"rules_hash"`
	DomainSeparator string `json:"domain_separator"`
	TradesRoot      string `json:"trades_root"`
	FeesRoot        string `json:"fees_root"`
	PublicValues    string `json:"public_values"`
	TouchedDigest   string `json:"touched_digest"`
}

// LoadInputFile reads and parses a batch vector file from disk.
func LoadInputFile(path string) (*InputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	var in InputFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse input json: %w", err)
	}
	return &in, nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hex decode %q: %w", s, err)
	}
	return b, nil
}

func parseB32(s string) (clobtypes.Hash, error) {
	b, err := parseHex(s)
	if err != nil {
		return clobtypes.Hash{}, err
	}
	if len(b) != 32 {
		return clobtypes.Hash{}, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	return clobtypes.HashFromBytes(b), nil
}

func parseAddr(s string) (clobtypes.Address, error) {
	b, err := parseHex(s)
	if err != nil {
		return clobtypes.Address{}, err
	}
	if len(b) != 20 {
		return clobtypes.Address{}, fmt.Errorf("expected 20 bytes, got %d", len(b))
	}
	return clobtypes.AddressFromBytes(b), nil
}

func parseU256(s string) (*clobtypes.U256, error) {
	b, err := parseHex(s)
	if err != nil {
		return nil, err
	}
	if len(b) > 32 {
		return nil, fmt.Errorf("u256 literal overflows 256 bits")
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return xmath.FromBytes32(padded), nil
}

func parseSig(s string) (clobtypes.Signature, error) {
	b, err := parseHex(s)
	if err != nil {
		return clobtypes.Signature{}, err
	}
	if len(b) != 65 {
		return clobtypes.Signature{}, fmt.Errorf("signature must be 65 bytes, got %d", len(b))
	}
	return clobtypes.SignatureFromBytes(b), nil
}

// BuildRules decodes a RulesJSON into the engine's Rules.
func BuildRules(rj RulesJSON) (*clobtypes.Rules, error) {
	base, err := parseB32(rj.BaseAssetID)
	if err != nil {
		return nil, fmt.Errorf("base_asset_id: %w", err)
	}
	quote, err := parseB32(rj.QuoteAssetID)
	if err != nil {
		return nil, fmt.Errorf("quote_asset_id: %w", err)
	}
	priceScale, err := parseU256(rj.PriceScale)
	if err != nil {
		return nil, fmt.Errorf("price_scale: %w", err)
	}
	tickSize, err := parseU256(rj.TickSize)
	if err != nil {
		return nil, fmt.Errorf("tick_size: %w", err)
	}
	lotSize, err := parseU256(rj.LotSize)
	if err != nil {
		return nil, fmt.Errorf("lot_size: %w", err)
	}
	maxBalance, err := parseU256(rj.MaxBalance)
	if err != nil {
		return nil, fmt.Errorf("max_balance: %w", err)
	}
	return &clobtypes.Rules{
		BaseAssetID:        base,
		QuoteAssetID:       quote,
		PriceScale:         priceScale,
		TickSize:           tickSize,
		LotSize:            lotSize,
		TakerFeeBps:        rj.TakerFeeBps,
		MakerFeeBps:        rj.MakerFeeBps,
		MaxOrdersPerBatch:  rj.MaxOrdersPerBatch,
		MaxMatchesPerOrder: rj.MaxMatchesPerOrder,
		MaxBalance:         maxBalance,
	}, nil
}

// PopulateTree seeds tree with every entity StateJSON describes, using the
// same authenticated keys the matching engine reads and writes (§3, §4.E).
func PopulateTree(tree *merkle.SparseMerkleTree, state StateJSON, marketID clobtypes.Hash) error {
	for _, bal := range state.Balances {
		account, err := parseAddr(bal.Account)
		if err != nil {
			return fmt.Errorf("balance account: %w", err)
		}
		asset, err := parseB32(bal.Asset)
		if err != nil {
			return fmt.Errorf("balance asset: %w", err)
		}
		available, err := parseU256(bal.Available)
		if err != nil {
			return fmt.Errorf("balance available: %w", err)
		}
		locked, err := parseU256(bal.Locked)
		if err != nil {
			return fmt.Errorf("balance locked: %w", err)
		}
		b := &clobtypes.Balance{Available: available, Locked: locked}
		tree.Update(clobstate.KeyBalance(account, asset), b.EncodedBytes())
	}
	for _, n := range state.Nonces {
		account, err := parseAddr(n.Account)
		if err != nil {
			return fmt.Errorf("nonce account: %w", err)
		}
		var buf [8]byte
		putU64(buf[:], n.Nonce)
		tree.Update(clobstate.KeyNonce(account), buf[:])
	}
	for _, ord := range state.Orders {
		orderID, err := parseB32(ord.OrderID)
		if err != nil {
			return fmt.Errorf("order id: %w", err)
		}
		owner, err := parseAddr(ord.Owner)
		if err != nil {
			return fmt.Errorf("order owner: %w", err)
		}
		qty, err := parseU256(ord.QtyRemaining)
		if err != nil {
			return fmt.Errorf("order qty_remaining: %w", err)
		}
		o := &clobtypes.Order{
			Owner:        owner,
			Side:         clobtypes.Side(ord.Side),
			Tick:         ord.Tick,
			QtyRemaining: qty,
			TIF:          clobtypes.TimeInForce(ord.TIF),
			Status:       clobtypes.OrderStatus(ord.Status),
		}
		tree.Update(clobstate.KeyOrder(orderID), o.EncodedBytes())
	}
	for _, node := range state.OrderNodes {
		orderID, err := parseB32(node.OrderID)
		if err != nil {
			return fmt.Errorf("order node id: %w", err)
		}
		prev, err := parseB32(node.Prev)
		if err != nil {
			return fmt.Errorf("order node prev: %w", err)
		}
		next, err := parseB32(node.Next)
		if err != nil {
			return fmt.Errorf("order node next: %w", err)
		}
		on := &clobtypes.OrderNode{PrevOrderID: prev, NextOrderID: next}
		tree.Update(clobstate.KeyOrderNode(orderID), on.EncodedBytes())
	}
	for _, tn := range state.TickNodes {
		head, err := parseB32(tn.Head)
		if err != nil {
			return fmt.Errorf("tick node head: %w", err)
		}
		tail, err := parseB32(tn.Tail)
		if err != nil {
			return fmt.Errorf("tick node tail: %w", err)
		}
		node := &clobtypes.TickNode{PrevTick: tn.Prev, NextTick: tn.Next, Head: head, Tail: tail}
		tree.Update(clobstate.KeyTickNode(marketID, clobtypes.Side(tn.Side), tn.Tick), node.EncodedBytes())
	}
	if state.MarketBest != nil {
		mb := &clobtypes.MarketBest{BestBid: state.MarketBest.BestBid, BestAsk: state.MarketBest.BestAsk}
		tree.Update(clobstate.KeyMarketBest(marketID), mb.EncodedBytes())
	}
	for _, fv := range state.FeeVaults {
		asset, err := parseB32(fv.Asset)
		if err != nil {
			return fmt.Errorf("fee vault asset: %w", err)
		}
		total, err := parseU256(fv.Total)
		if err != nil {
			return fmt.Errorf("fee vault total: %w", err)
		}
		v := &clobtypes.FeeVault{Total: total}
		tree.Update(clobstate.KeyFeeVault(asset), v.EncodedBytes())
	}
	return nil
}

func putU64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// BuildMessages decodes a batch of MessageJSON into signed engine messages,
// auto-signing any entry whose signature is "auto" from its inline private
// key under domainSep.
func BuildMessages(batch []MessageJSON, domainSep [32]byte) ([]*clobtypes.SignedMessage, error) {
	out := make([]*clobtypes.SignedMessage, 0, len(batch))
	for i, mj := range batch {
		trader, err := parseAddr(mj.Trader)
		if err != nil {
			return nil, fmt.Errorf("message %d trader: %w", i, err)
		}
		orderID, err := parseB32(mj.OrderID)
		if err != nil {
			return nil, fmt.Errorf("message %d order_id: %w", i, err)
		}

		var msg clobtypes.Message
		switch mj.Kind {
		case "place":
			if mj.Side == nil || mj.TIF == nil || mj.TickIndex == nil || mj.QtyBase == nil {
				return nil, fmt.Errorf("message %d: place requires side, tif, tick_index, qty_base", i)
			}
			qty, err := parseU256(*mj.QtyBase)
			if err != nil {
				return nil, fmt.Errorf("message %d qty_base: %w", i, err)
			}
			prevHint, nextHint := clobtypes.NoneTick, clobtypes.NoneTick
			if mj.PrevTickHint != nil {
				prevHint = *mj.PrevTickHint
			}
			if mj.NextTickHint != nil {
				nextHint = *mj.NextTickHint
			}
			msg = clobtypes.Message{
				Kind: clobtypes.MsgPlace,
				Place: &clobtypes.PlaceMessage{
					Trader:       trader,
					Nonce:        mj.Nonce,
					OrderID:      orderID,
					Side:         clobtypes.Side(*mj.Side),
					TIF:          clobtypes.TimeInForce(*mj.TIF),
					Tick:         *mj.TickIndex,
					QtyBase:      qty,
					PrevTickHint: prevHint,
					NextTickHint: nextHint,
				},
			}
		case "cancel":
			msg = clobtypes.Message{
				Kind:   clobtypes.MsgCancel,
				Cancel: &clobtypes.CancelMessage{Trader: trader, Nonce: mj.Nonce, OrderID: orderID},
			}
		default:
			return nil, fmt.Errorf("message %d: unknown kind %q", i, mj.Kind)
		}

		var sig clobtypes.Signature
		if mj.Signature == "auto" {
			if mj.PrivateKey == nil {
				return nil, fmt.Errorf("message %d: signature \"auto\" requires private_key", i)
			}
			sig, err = signAuto(*mj.PrivateKey, &msg, domainSep)
			if err != nil {
				return nil, fmt.Errorf("message %d auto-sign: %w", i, err)
			}
		} else {
			sig, err = parseSig(mj.Signature)
			if err != nil {
				return nil, fmt.Errorf("message %d signature: %w", i, err)
			}
		}

		out = append(out, &clobtypes.SignedMessage{Message: msg, Signature: sig})
	}
	return out, nil
}

func signAuto(privKeyHex string, msg *clobtypes.Message, domainSep [32]byte) (clobtypes.Signature, error) {
	keyBytes, err := parseHex(privKeyHex)
	if err != nil {
		return clobtypes.Signature{}, err
	}
	priv, err := ethcrypto.ToECDSA(keyBytes)
	if err != nil {
		return clobtypes.Signature{}, fmt.Errorf("parse private key: %w", err)
	}
	hash := signing.MessageHash(domainSep, msg)
	sig, err := ethcrypto.Sign(hash[:], priv)
	if err != nil {
		return clobtypes.Signature{}, fmt.Errorf("sign: %w", err)
	}
	return clobtypes.SignatureFromBytes(sig), nil
}
