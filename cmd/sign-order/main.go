// Command sign-order generates (or loads) a secp256k1 key, builds a single
// Place or Cancel message, signs it under the venue's domain separator, and
// prints a hostvectors-compatible MessageJSON object ready to paste into a
// batch vector's "batch" array. Grounded on the teacher's cmd/sign-order/main.go,
// rewired from its EIP-712 typed-data flow onto this venue's own EIP-191-style
// message envelope (pkg/signing).
package main

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/hostvectors"
	"github.com/numo-labs/zkclob-core/pkg/signing"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

func main() {
	chainID := flag.Uint64("chain-id", 1, "chain id bound into the domain separator")
	venueID := flag.String("venue-id", "", "32-byte hex venue id")
	marketID := flag.String("market-id", "", "32-byte hex market id")
	kind := flag.String("kind", "place", "place|cancel")
	privateKeyHex := flag.String("private-key", "", "hex private key; a new one is generated if omitted")
	nonce := flag.Uint64("nonce", 1, "account nonce for this message")
	orderIDHex := flag.String("order-id", "", "32-byte hex order id; a random one is generated if omitted (place) or required (cancel)")
	side := flag.String("side", "buy", "buy|sell (place only)")
	tif := flag.String("tif", "gtc", "gtc|ioc (place only)")
	tick := flag.Int("tick", 0, "tick index (place only)")
	qtyBase := flag.Uint64("qty", 0, "base quantity, native units (place only)")
	flag.Parse()

	if err := run(*chainID, *venueID, *marketID, *kind, *privateKeyHex, *nonce, *orderIDHex, *side, *tif, *tick, *qtyBase); err != nil {
		fmt.Fprintf(os.Stderr, "sign-order: %v\n", err)
		os.Exit(1)
	}
}

func run(chainID uint64, venueIDHex, marketIDHex, kind, privateKeyHex string, nonce uint64, orderIDHex, sideStr, tifStr string, tick int, qtyBase uint64) error {
	venueID, err := decodeHash32(venueIDHex)
	if err != nil {
		return fmt.Errorf("venue-id: %w", err)
	}
	marketID, err := decodeHash32(marketIDHex)
	if err != nil {
		return fmt.Errorf("market-id: %w", err)
	}

	key, err := loadOrGenerateKey(privateKeyHex)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	address := ethcrypto.PubkeyToAddress(key.PublicKey)
	fmt.Printf("Address: %s\n", address.Hex())
	fmt.Printf("Private Key: %s (KEEP SECRET!)\n\n", hex.EncodeToString(ethcrypto.FromECDSA(key)))

	orderID, err := resolveOrderID(orderIDHex, kind)
	if err != nil {
		return err
	}

	msg, err := buildMessage(kind, address, nonce, orderID, sideStr, tifStr, tick, qtyBase)
	if err != nil {
		return err
	}

	domainSep := signing.DomainSeparator(chainID, venueID, marketID)
	hash := signing.MessageHash(domainSep, msg)
	sig, err := sign(hash, key)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	if err := signing.VerifySignature(domainSep, msg, sig, clobtypes.AddressFromBytes(address.Bytes())); err != nil {
		return fmt.Errorf("self-check failed: %w", err)
	}
	fmt.Println("Signature self-check: VALID")

	out := toMessageJSON(msg, sig)
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	fmt.Println("\nMessageJSON (paste into a batch vector's \"batch\" array):")
	fmt.Println(string(data))
	return nil
}

func loadOrGenerateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	if privateKeyHex == "" {
		return ethcrypto.GenerateKey()
	}
	return ethcrypto.HexToECDSA(trimHexPrefix(privateKeyHex))
}

func resolveOrderID(orderIDHex, kind string) (clobtypes.OrderId, error) {
	if orderIDHex != "" {
		return decodeHash32(orderIDHex)
	}
	if kind == "cancel" {
		return clobtypes.OrderId{}, fmt.Errorf("order-id is required for cancel messages")
	}
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return clobtypes.OrderId{}, fmt.Errorf("generate order id: %w", err)
	}
	return clobtypes.HashFromBytes(raw[:]), nil
}

func buildMessage(kind string, address [20]byte, nonce uint64, orderID clobtypes.OrderId, sideStr, tifStr string, tick int, qtyBase uint64) (*clobtypes.Message, error) {
	trader := clobtypes.AddressFromBytes(address[:])
	switch kind {
	case "place":
		side, err := parseSide(sideStr)
		if err != nil {
			return nil, err
		}
		tifVal, err := parseTIF(tifStr)
		if err != nil {
			return nil, err
		}
		qty := xmath.FromUint64(qtyBase)
		return &clobtypes.Message{
			Kind: clobtypes.MsgPlace,
			Place: &clobtypes.PlaceMessage{
				Trader:       trader,
				Nonce:        nonce,
				OrderID:      orderID,
				Side:         side,
				TIF:          tifVal,
				Tick:         int32(tick),
				QtyBase:      qty,
				PrevTickHint: clobtypes.NoneTick,
				NextTickHint: clobtypes.NoneTick,
			},
		}, nil
	case "cancel":
		return &clobtypes.Message{
			Kind: clobtypes.MsgCancel,
			Cancel: &clobtypes.CancelMessage{
				Trader:  trader,
				Nonce:   nonce,
				OrderID: orderID,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q, want place|cancel", kind)
	}
}

func parseSide(s string) (clobtypes.Side, error) {
	switch s {
	case "buy":
		return clobtypes.SideBuy, nil
	case "sell":
		return clobtypes.SideSell, nil
	default:
		return 0, fmt.Errorf("unknown side %q, want buy|sell", s)
	}
}

func parseTIF(s string) (clobtypes.TimeInForce, error) {
	switch s {
	case "gtc":
		return clobtypes.TIFGTC, nil
	case "ioc":
		return clobtypes.TIFIOC, nil
	default:
		return 0, fmt.Errorf("unknown tif %q, want gtc|ioc", s)
	}
}

// sign produces an ECDSA-secp256k1 signature with v normalized to {0,1}, as
// signing.RecoverAddress expects.
func sign(hash [32]byte, key *ecdsa.PrivateKey) (clobtypes.Signature, error) {
	sig, err := ethcrypto.Sign(hash[:], key)
	if err != nil {
		return clobtypes.Signature{}, err
	}
	return clobtypes.SignatureFromBytes(sig), nil
}

func toMessageJSON(msg *clobtypes.Message, sig clobtypes.Signature) hostvectors.MessageJSON {
	out := hostvectors.MessageJSON{
		Trader:    "0x" + hex.EncodeToString(msg.Trader().Bytes()),
		Nonce:     msg.Nonce(),
		OrderID:   "0x" + hex.EncodeToString(msg.OrderID().Bytes()),
		Signature: "0x" + hex.EncodeToString(sig.Bytes()),
	}
	if msg.Kind == clobtypes.MsgPlace {
		out.Kind = "place"
		side := uint8(msg.Place.Side)
		tifVal := uint32(msg.Place.TIF)
		tickVal := msg.Place.Tick
		qty := "0x" + hex.EncodeToString(xmath.ToBytes32(msg.Place.QtyBase))
		prevHint := msg.Place.PrevTickHint
		nextHint := msg.Place.NextTickHint
		out.Side = &side
		out.TIF = &tifVal
		out.TickIndex = &tickVal
		out.QtyBase = &qty
		out.PrevTickHint = &prevHint
		out.NextTickHint = &nextHint
	} else {
		out.Kind = "cancel"
	}
	return out
}

func decodeHash32(s string) (clobtypes.Hash, error) {
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil || len(raw) != 32 {
		return clobtypes.Hash{}, fmt.Errorf("expected 32-byte hex, got %q", s)
	}
	return clobtypes.HashFromBytes(raw), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
