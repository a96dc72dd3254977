package clobtypes

import "github.com/numo-labs/zkclob-core/pkg/codec"

// MessageKind identifies the wire tag of a signed message; it doubles as the
// leading byte of the signed preimage (§4.F).
type MessageKind uint8

const (
	MsgPlace  MessageKind = 0x01
	MsgCancel MessageKind = 0x02
)

// Signature is a 65-byte (r, s, v) ECDSA-secp256k1 signature. v is accepted
// as 0, 1, 27 or 28 and normalized to {0,1} by the signing package.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

func (s Signature) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[0:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

func SignatureFromBytes(b []byte) Signature {
	var s Signature
	copy(s.R[:], b[0:32])
	copy(s.S[:], b[32:64])
	s.V = b[64]
	return s
}

// PlaceMessage is a new-order instruction.
type PlaceMessage struct {
	Trader       Address
	Nonce        uint64
	OrderID      OrderId
	Side         Side
	TIF          TimeInForce
	Tick         TickIndex
	QtyBase      *U256
	PrevTickHint TickIndex
	NextTickHint TickIndex
}

// CancelMessage cancels a resting order owned by Trader.
type CancelMessage struct {
	Trader  Address
	Nonce   uint64
	OrderID OrderId
}

// Message is either a Place or a Cancel; exactly one of Place/Cancel is set,
// selected by Kind.
type Message struct {
	Kind   MessageKind
	Place  *PlaceMessage
	Cancel *CancelMessage
}

func (m *Message) Trader() Address {
	if m.Kind == MsgPlace {
		return m.Place.Trader
	}
	return m.Cancel.Trader
}

func (m *Message) Nonce() uint64 {
	if m.Kind == MsgPlace {
		return m.Place.Nonce
	}
	return m.Cancel.Nonce
}

func (m *Message) OrderID() OrderId {
	if m.Kind == MsgPlace {
		return m.Place.OrderID
	}
	return m.Cancel.OrderID
}

// EncodeSigned writes the canonical preimage bytes of §4.F — tag, trader,
// nonce, order_id and kind-specific fields, WITHOUT the signature or (for
// Place) the tick hints, which never enter the signed preimage.
func (m *Message) EncodeSigned(w *codec.Writer) {
	w.PutByte(byte(m.Kind))
	switch m.Kind {
	case MsgPlace:
		p := m.Place
		w.PutFixed(p.Trader.Bytes())
		w.PutU64(p.Nonce)
		w.PutFixed(p.OrderID.Bytes())
		w.PutByte(byte(p.Side))
		w.PutU32(uint32(p.TIF))
		w.PutI32(p.Tick)
		w.PutFixed(xU256Bytes(p.QtyBase))
	case MsgCancel:
		c := m.Cancel
		w.PutFixed(c.Trader.Bytes())
		w.PutU64(c.Nonce)
		w.PutFixed(c.OrderID.Bytes())
	}
}

// SignedPreimageBytes returns EncodeSigned's output as a standalone slice,
// the input to the message hash (§4.F).
func (m *Message) SignedPreimageBytes() []byte {
	w := codec.NewWriter(96)
	m.EncodeSigned(w)
	return w.Bytes()
}

// SignedMessage pairs a Message with its signature.
type SignedMessage struct {
	Message   Message
	Signature Signature
}

// EncodeWire writes the GuestBundle wire form: tag + signed fields (as in
// EncodeSigned, sans the tag's duplicate effect — the tag is written once),
// then the 65-byte signature, then (Place only) the two tick hints.
func (sm *SignedMessage) EncodeWire(w *codec.Writer) {
	sm.Message.EncodeSigned(w)
	w.PutFixed(sm.Signature.Bytes())
	if sm.Message.Kind == MsgPlace {
		w.PutI32(sm.Message.Place.PrevTickHint)
		w.PutI32(sm.Message.Place.NextTickHint)
	}
}

// DecodeSignedMessage reads one wire-form message as produced by EncodeWire.
func DecodeSignedMessage(r *codec.Reader) (*SignedMessage, error) {
	kind := MessageKind(r.GetByte())
	switch kind {
	case MsgPlace:
		trader := AddressFromBytes(r.GetFixed(20))
		nonce := r.GetU64()
		orderID := HashFromBytes(r.GetFixed(32))
		side := Side(r.GetByte())
		tif := TimeInForce(r.GetU32())
		tick := r.GetI32()
		qty := u256FromFixed(r.GetFixed(32))
		sig := SignatureFromBytes(r.GetFixed(65))
		prevHint := r.GetI32()
		nextHint := r.GetI32()
		if r.Err() != nil {
			return nil, DecodeErrorf("message: %v", r.Err())
		}
		return &SignedMessage{
			Message: Message{
				Kind: MsgPlace,
				Place: &PlaceMessage{
					Trader: trader, Nonce: nonce, OrderID: orderID,
					Side: side, TIF: tif, Tick: tick, QtyBase: qty,
					PrevTickHint: prevHint, NextTickHint: nextHint,
				},
			},
			Signature: sig,
		}, nil
	case MsgCancel:
		trader := AddressFromBytes(r.GetFixed(20))
		nonce := r.GetU64()
		orderID := HashFromBytes(r.GetFixed(32))
		sig := SignatureFromBytes(r.GetFixed(65))
		if r.Err() != nil {
			return nil, DecodeErrorf("message: %v", r.Err())
		}
		return &SignedMessage{
			Message: Message{
				Kind:   MsgCancel,
				Cancel: &CancelMessage{Trader: trader, Nonce: nonce, OrderID: orderID},
			},
			Signature: sig,
		}, nil
	default:
		return nil, DecodeErrorf("message: unknown tag 0x%02x", byte(kind))
	}
}
