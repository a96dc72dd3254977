package clobtypes

// Namespace labels are fixed 32-byte ASCII strings, space-padded,
// concatenated with the 0x1f separator byte before hashing to derive a
// storage key. They are [32]byte package variables built once by pad32 at
// package initialization.
var (
	NSBalance    = pad32("NS_BAL")
	NSNonce      = pad32("NS_NONCE")
	NSOrder      = pad32("NS_ORDER")
	NSOrderNode  = pad32("NS_ORDERNODE")
	NSTickNode   = pad32("NS_TICKNODE")
	NSMarketBest = pad32("NS_MARKETBEST")
	NSFeeVault   = pad32("NS_FEEVAULT")
)

// KeySeparator prevents concatenation collisions between namespace label and
// the entity-specific suffix that follows it.
const KeySeparator = byte(0x1f)

const (
	DomainTag = "NUMO_SPOT_CLOB_V1"
	BatchTag  = "BATCH_V1"
)

// NoneTick is the sentinel TickIndex meaning "no tick" (math.MinInt32).
const NoneTick int32 = -1 << 31

// NoneOrder is the all-zero OrderId sentinel meaning "no order".
var NoneOrder Hash

// PriceScale is the only permitted price_scale value: 10^18.
var PriceScale = mustDecU256("1000000000000000000")

func pad32(label string) [32]byte {
	var out [32]byte
	copy(out[:], label)
	for i := len(label); i < 32; i++ {
		out[i] = ' '
	}
	return out
}
