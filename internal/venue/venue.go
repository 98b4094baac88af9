// Package venue defines the venue/product-class protocol algebra (C2): the
// sequence predicates that drive bootstrap and steady-state reconciliation,
// plus the wire types every venue decoder produces. Concrete decoders live
// in the binance and crypto subpackages; this package only carries the
// shared vocabulary and the tagged dispatch over product class.
package venue

import "github.com/sequex/depthgateway/internal/orderbook"

// Name identifies a supported venue.
type Name int

const (
	Binance Name = iota
	Crypto
)

func (n Name) String() string {
	switch n {
	case Binance:
		return "binance"
	case Crypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// Product is the sealed sum type over product classes. Spot and LinearPerp
// share one sequence algebra; InversePerp uses its own (see Algebra).
type Product int

const (
	Spot Product = iota
	LinearPerp
	InversePerp
)

func (p Product) String() string {
	switch p {
	case Spot:
		return "spot"
	case LinearPerp:
		return "linear_perp"
	case InversePerp:
		return "inverse_perp"
	default:
		return "unknown"
	}
}

// IncrementalEvent is a decoded depth-update message, subject to the four
// sequence predicates in Algebra.
type IncrementalEvent struct {
	FirstUpdateID    int64
	LastUpdateID     int64
	PrevLastUpdateID int64 // inverse-perp only; zero value is never consulted by the other two product classes
	VenueTS          int64
	VenueTxTS        int64
	BidDeltas        []orderbook.PriceLevel
	AskDeltas        []orderbook.PriceLevel
}

// RestBootstrapSnapshot is the REST depth-snapshot response used to seed a
// ladder during bootstrap.
type RestBootstrapSnapshot struct {
	LastUpdateID int64
	Bids         []orderbook.PriceLevel
	Asks         []orderbook.PriceLevel
	VenueTS      int64
	VenueTxTS    int64
}

// LevelEvent is a full top-N book replacement, used by level-event streams
// that have no incremental sequence algebra.
type LevelEvent struct {
	SequenceID int64
	VenueTS    int64
	Bids       []orderbook.PriceLevel
	Asks       []orderbook.PriceLevel
}

// Side identifies the taker side of an executed trade.
type Side int

const (
	Buy Side = iota
	Sell
)

// Trade is one executed-trade tuple independent of the book stream.
type Trade struct {
	LocalTS int64
	VenueTS int64
	Price   orderbook.PriceLevel // Size carries trade size; Price carries trade price
	Side    Side
	TradeID string
}

// Algebra is the four-predicate sequence algebra a product class provides.
// Exactly one of Behind/Matches/Ahead holds for any (event, snapshotID)
// pair; Continues is evaluated against the ladder's last-applied id during
// steady state.
type Algebra interface {
	// Behind reports that evt is already covered by the snapshot at id S.
	Behind(evt IncrementalEvent, s int64) bool
	// Matches reports that evt straddles S and is usable as the first live
	// event applied after loading the snapshot.
	Matches(evt IncrementalEvent, s int64) bool
	// Ahead reports that evt is in the future relative to S: the snapshot
	// is stale and bootstrap must restart with a fresh REST fetch.
	Ahead(evt IncrementalEvent, s int64) bool
	// Continues reports that evt cleanly follows the event whose last id
	// was p, i.e. the ladder's current sequence id.
	Continues(evt IncrementalEvent, p int64) bool
}

// AlgebraFor returns the sequence algebra for a product class.
func AlgebraFor(p Product) Algebra {
	if p == InversePerp {
		return inverseAlgebra{}
	}
	return standardAlgebra{}
}

// standardAlgebra implements the spot/linear-perp predicate table.
type standardAlgebra struct{}

func (standardAlgebra) Behind(evt IncrementalEvent, s int64) bool {
	return evt.LastUpdateID <= s
}

func (standardAlgebra) Matches(evt IncrementalEvent, s int64) bool {
	return evt.FirstUpdateID <= s+1 && s+1 <= evt.LastUpdateID
}

func (standardAlgebra) Ahead(evt IncrementalEvent, s int64) bool {
	return evt.FirstUpdateID > s+1
}

func (standardAlgebra) Continues(evt IncrementalEvent, p int64) bool {
	return evt.FirstUpdateID == p+1
}

// inverseAlgebra implements the inverse-perp predicate table, which uses
// prev_last_update_id ("pu") for Continues rather than comparing
// first_update_id directly.
type inverseAlgebra struct{}

func (inverseAlgebra) Behind(evt IncrementalEvent, s int64) bool {
	return evt.LastUpdateID < s
}

func (inverseAlgebra) Matches(evt IncrementalEvent, s int64) bool {
	return evt.FirstUpdateID <= s && s <= evt.LastUpdateID
}

func (inverseAlgebra) Ahead(evt IncrementalEvent, s int64) bool {
	return evt.FirstUpdateID > s
}

func (inverseAlgebra) Continues(evt IncrementalEvent, p int64) bool {
	return evt.PrevLastUpdateID == p
}

// Decoder turns raw application-frame bytes from a transport session into
// the protocol types above. A venue/product pairing implements exactly the
// paths it supports; unsupported paths return ErrUnsupportedStream.
type Decoder interface {
	DecodeIncrementalEvent(raw []byte) (IncrementalEvent, error)
	DecodeLevelEvent(raw []byte) (LevelEvent, error)
	DecodeTrades(raw []byte) ([]Trade, error)
}
