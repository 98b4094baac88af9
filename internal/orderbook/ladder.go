// Package orderbook implements the book ladder (C1), the bootstrap/resync
// state machine (C3), and the steady-state applier (C4) described by the
// order-book synchronization engine: a sorted bid/ask price ladder that is
// loaded from a REST snapshot and kept current by incremental or full-level
// venue events.
package orderbook

import (
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/shopspring/decimal"
)

// Side identifies one of the two price ladders.
type Side int

const (
	Bid Side = iota
	Ask
)

// PriceLevel is a single (price, size) pair. A zero Size denotes deletion on
// incremental updates; it is never present in an exported DepthSnapshot.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// DepthSnapshot is the immutable, point-in-time view of a ladder handed to
// consumers. Bids are descending by price, asks ascending; both sides carry
// only strictly positive sizes.
type DepthSnapshot struct {
	SequenceID int64
	VenueTS    int64
	LocalTS    int64
	Bids       []PriceLevel
	Asks       []PriceLevel
}

func priceComparator(a, b interface{}) int {
	return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
}

// Ladder holds one subscription's bid and ask price maps plus the metadata
// stamped on every mutation. It does no locking of its own and is not safe
// for concurrent use; callers serialize all access themselves (the
// subscription supervisor's goroutine is the only user in practice, and
// readers see exported DepthSnapshot copies instead of the ladder).
type Ladder struct {
	bids *treemap.Map // decimal.Decimal -> decimal.Decimal, iterated descending
	asks *treemap.Map // decimal.Decimal -> decimal.Decimal, iterated ascending

	sequenceID int64
	venueTS    int64
	venueTxTS  int64
	localTS    int64
}

// Now is overridable in tests so local-timestamp assertions are deterministic.
var Now = func() int64 { return time.Now().UnixMilli() }

// New returns an empty ladder. Safe to call many times; construction never
// starts any background work (the ladder is pure state).
func New() *Ladder {
	return &Ladder{
		bids: treemap.NewWith(priceComparator),
		asks: treemap.NewWith(priceComparator),
	}
}

func (l *Ladder) mapFor(side Side) *treemap.Map {
	if side == Bid {
		return l.bids
	}
	return l.asks
}

// applySide upserts or removes each level on one side: zero size deletes the
// key, anything else inserts or overwrites it.
func applySide(m *treemap.Map, levels []PriceLevel) {
	for _, lvl := range levels {
		if lvl.Size.IsZero() {
			m.Remove(lvl.Price)
			continue
		}
		m.Put(lvl.Price, lvl.Size)
	}
}

// LoadSnapshot clears both sides and loads a REST bootstrap snapshot,
// stamping the sequence id the rest of the reconstruction hinges on.
func (l *Ladder) LoadSnapshot(bids, asks []PriceLevel, sequenceID, venueTS, venueTxTS int64) {
	l.bids.Clear()
	l.asks.Clear()
	applySide(l.bids, bids)
	applySide(l.asks, asks)
	l.sequenceID = sequenceID
	l.venueTS = venueTS
	l.venueTxTS = venueTxTS
	l.localTS = Now()
}

// ApplyDeltas merges an incremental event's bid/ask deltas into the ladder
// and advances its sequence metadata. Callers are responsible for having
// already verified the event continues the ladder's sequence.
func (l *Ladder) ApplyDeltas(bidDeltas, askDeltas []PriceLevel, sequenceID, venueTS, venueTxTS int64) {
	applySide(l.bids, bidDeltas)
	applySide(l.asks, askDeltas)
	l.sequenceID = sequenceID
	l.venueTS = venueTS
	l.venueTxTS = venueTxTS
	l.localTS = Now()
}

// SetFromLevelEvent replaces both sides wholesale, for venues/paths that
// publish a full top-N book instead of deltas.
func (l *Ladder) SetFromLevelEvent(bids, asks []PriceLevel, sequenceID, venueTS int64) {
	l.bids.Clear()
	l.asks.Clear()
	for _, lvl := range bids {
		if !lvl.Size.IsZero() {
			l.bids.Put(lvl.Price, lvl.Size)
		}
	}
	for _, lvl := range asks {
		if !lvl.Size.IsZero() {
			l.asks.Put(lvl.Price, lvl.Size)
		}
	}
	l.sequenceID = sequenceID
	l.venueTS = venueTS
	l.localTS = Now()
}

// SequenceID reports the ladder's current sequence id (the last applied
// event's last_update_id, or the level event's own id).
func (l *Ladder) SequenceID() int64 { return l.sequenceID }

// Export materializes both sides in their canonical emission order: asks
// ascending, bids descending. depth <= 0 exports every level.
func (l *Ladder) Export(depth int) DepthSnapshot {
	return DepthSnapshot{
		SequenceID: l.sequenceID,
		VenueTS:    l.venueTS,
		LocalTS:    l.localTS,
		Bids:       levels(l.bids, depth, true),
		Asks:       levels(l.asks, depth, false),
	}
}

func levels(m *treemap.Map, depth int, descending bool) []PriceLevel {
	keys := m.Keys()
	out := make([]PriceLevel, 0, len(keys))
	if descending {
		for i := len(keys) - 1; i >= 0; i-- {
			if depth > 0 && len(out) >= depth {
				break
			}
			price := keys[i].(decimal.Decimal)
			size, _ := m.Get(price)
			out = append(out, PriceLevel{Price: price, Size: size.(decimal.Decimal)})
		}
		return out
	}
	for _, k := range keys {
		if depth > 0 && len(out) >= depth {
			break
		}
		price := k.(decimal.Decimal)
		size, _ := m.Get(price)
		out = append(out, PriceLevel{Price: price, Size: size.(decimal.Decimal)})
	}
	return out
}

// BestLevel returns the best (innermost) level on one side, or false if that
// side is currently empty.
func (l *Ladder) BestLevel(side Side) (PriceLevel, bool) {
	m := l.mapFor(side)
	if m.Empty() {
		return PriceLevel{}, false
	}
	var price, size interface{}
	if side == Ask {
		price, size = m.Min()
	} else {
		price, size = m.Max()
	}
	return PriceLevel{Price: price.(decimal.Decimal), Size: size.(decimal.Decimal)}, true
}

// Depth reports how many distinct price levels currently sit on one side.
func (l *Ladder) Depth(side Side) int {
	return l.mapFor(side).Size()
}
