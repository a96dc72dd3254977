package hostvectors

import (
	"container/heap"
	"sort"

	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
)

// bidHeap orders occupied bid ticks with the highest on top, so the host can
// read the current best bid in O(1) after heap.Init/Push/Pop.
type bidHeap []clobtypes.TickIndex

func (h bidHeap) Len() int            { return len(h) }
func (h bidHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h bidHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *bidHeap) Push(x interface{}) { *h = append(*h, x.(clobtypes.TickIndex)) }
func (h *bidHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// askHeap orders occupied ask ticks with the lowest on top.
type askHeap []clobtypes.TickIndex

func (h askHeap) Len() int            { return len(h) }
func (h askHeap) Less(i, j int) bool   { return h[i] < h[j] }
func (h askHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i] }
func (h *askHeap) Push(x interface{})  { *h = append(*h, x.(clobtypes.TickIndex)) }
func (h *askHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TickIndex tracks which ticks are occupied on each side of a market's book
// so a host assembling a batch can compute the prev/next tick hints a fresh
// GTC rest needs to splice into the engine's doubly-linked tick list, without
// walking the authenticated tree itself (§4.G, §5). It mirrors the structure
// the matching engine verifies, but carries none of its state authentication
// — a convenience for building test vectors and batches offline.
type TickIndex struct {
	bids    bidHeap
	asks    askHeap
	present map[occupiedKey]bool
}

type occupiedKey struct {
	side clobtypes.Side
	tick clobtypes.TickIndex
}

func NewTickIndex() *TickIndex {
	idx := &TickIndex{present: make(map[occupiedKey]bool)}
	heap.Init(&idx.bids)
	heap.Init(&idx.asks)
	return idx
}

// Insert records tick as now occupied on side. Inserting an already-occupied
// tick is a no-op.
func (idx *TickIndex) Insert(side clobtypes.Side, tick clobtypes.TickIndex) {
	key := occupiedKey{side, tick}
	if idx.present[key] {
		return
	}
	idx.present[key] = true
	switch side {
	case clobtypes.SideBuy:
		heap.Push(&idx.bids, tick)
	case clobtypes.SideSell:
		heap.Push(&idx.asks, tick)
	}
}

// Remove records tick as no longer occupied on side, as when its last
// resting order fills or cancels and the engine retires the tick.
func (idx *TickIndex) Remove(side clobtypes.Side, tick clobtypes.TickIndex) {
	key := occupiedKey{side, tick}
	if !idx.present[key] {
		return
	}
	delete(idx.present, key)
	switch side {
	case clobtypes.SideBuy:
		removeFromHeap(&idx.bids, tick)
	case clobtypes.SideSell:
		removeFromHeap(&idx.asks, tick)
	}
}

func removeFromHeap(h heap.Interface, tick clobtypes.TickIndex) {
	for i := 0; i < h.Len(); i++ {
		var at clobtypes.TickIndex
		switch s := h.(type) {
		case *bidHeap:
			at = (*s)[i]
		case *askHeap:
			at = (*s)[i]
		}
		if at == tick {
			heap.Remove(h, i)
			return
		}
	}
}

// Best returns the current best bid/ask on side, or NoneTick if side is
// empty.
func (idx *TickIndex) Best(side clobtypes.Side) clobtypes.TickIndex {
	switch side {
	case clobtypes.SideBuy:
		if len(idx.bids) == 0 {
			return clobtypes.NoneTick
		}
		return idx.bids[0]
	case clobtypes.SideSell:
		if len(idx.asks) == 0 {
			return clobtypes.NoneTick
		}
		return idx.asks[0]
	default:
		return clobtypes.NoneTick
	}
}

// Neighbors returns the prev/next tick hints a fresh resting order at tick
// would need: the nearest occupied ticks closer to and farther from the
// inside of the book, in the strict price order the matching engine's
// verifyTickHints enforces.
// tick itself must not already be occupied.
func (idx *TickIndex) Neighbors(side clobtypes.Side, tick clobtypes.TickIndex) (prev, next clobtypes.TickIndex) {
	sorted := idx.sortedTicks(side)
	prev, next = clobtypes.NoneTick, clobtypes.NoneTick
	switch side {
	case clobtypes.SideBuy:
		// Bids are ordered best (highest) first; prev is the nearer-to-best
		// neighbor (the next higher tick), next is the farther one.
		for _, t := range sorted {
			if t > tick {
				prev = t
			} else if t < tick && next == clobtypes.NoneTick {
				next = t
				break
			}
		}
	case clobtypes.SideSell:
		for _, t := range sorted {
			if t < tick {
				prev = t
			} else if t > tick && next == clobtypes.NoneTick {
				next = t
				break
			}
		}
	}
	return prev, next
}

func (idx *TickIndex) sortedTicks(side clobtypes.Side) []clobtypes.TickIndex {
	var out []clobtypes.TickIndex
	switch side {
	case clobtypes.SideBuy:
		out = append(out, idx.bids...)
		sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	case clobtypes.SideSell:
		out = append(out, idx.asks...)
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	}
	return out
}
