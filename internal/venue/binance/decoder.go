// Package binance decodes Binance's depth-update, level-event and trade
// wire frames into the venue package's protocol types. One Decoder serves
// all three product classes (spot, USDT-margined linear perpetual,
// coin-margined inverse perpetual): the three venue URLs differ, but the
// JSON payload shape is the same union described in spec §6, down to the
// optional "pu" field inverse perpetuals carry and the others omit.
//
// Grounded on the teacher's three already-duplicated per-product-class wire
// structs (pkg/exchange/binance/ws_model.go, pkg/exchange/binancefuture/ws_models.go,
// pkg/exchange/binanceperp/ws_model.go in the retrieved pack) and on
// original_source/src/binance/format/binance_perpetual_u.rs's EventPerpetualU.
package binance

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sequex/depthgateway/internal/orderbook"
	"github.com/sequex/depthgateway/internal/venue"
)

// Decoder implements venue.Decoder for every Binance product class.
type Decoder struct{}

func New() Decoder { return Decoder{} }

// rawLevels is the wire shape of a single price level: ["price", "size"].
type rawLevels = [][2]string

// combinedStreamEnvelope wraps USDT/coin-margined futures frames, which are
// always fetched through the "/stream?streams=" combined endpoint.
type combinedStreamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type depthUpdateWire struct {
	Type          string    `json:"e"`
	EventTS       int64     `json:"E"`
	TxTS          int64     `json:"T"`
	Pair          string    `json:"s"`
	FirstUpdateID int64     `json:"U"`
	LastUpdateID  int64     `json:"u"`
	PrevUpdateID  int64     `json:"pu"`
	Bids          rawLevels `json:"b"`
	Asks          rawLevels `json:"a"`
}

// unwrap strips the combined-stream envelope off futures frames; spot
// frames (raw "/ws/" endpoint) have no envelope and pass through unchanged.
func unwrap(raw []byte) []byte {
	var env combinedStreamEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		return env.Data
	}
	return raw
}

func parseLevels(raw rawLevels) ([]orderbook.PriceLevel, error) {
	out := make([]orderbook.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("binance: bad price %q: %w", pair[0], err)
		}
		size, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("binance: bad size %q: %w", pair[1], err)
		}
		out = append(out, orderbook.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}

func (Decoder) DecodeIncrementalEvent(raw []byte) (venue.IncrementalEvent, error) {
	var wire depthUpdateWire
	if err := json.Unmarshal(unwrap(raw), &wire); err != nil {
		return venue.IncrementalEvent{}, fmt.Errorf("%w: %v", venue.ErrMalformedFrame, err)
	}
	if wire.Type != "" && wire.Type != "depthUpdate" {
		return venue.IncrementalEvent{}, venue.ErrMalformedFrame
	}
	bids, err := parseLevels(wire.Bids)
	if err != nil {
		return venue.IncrementalEvent{}, err
	}
	asks, err := parseLevels(wire.Asks)
	if err != nil {
		return venue.IncrementalEvent{}, err
	}
	return venue.IncrementalEvent{
		FirstUpdateID:    wire.FirstUpdateID,
		LastUpdateID:     wire.LastUpdateID,
		PrevLastUpdateID: wire.PrevUpdateID,
		VenueTS:          wire.EventTS,
		VenueTxTS:        wire.TxTS,
		BidDeltas:        bids,
		AskDeltas:        asks,
	}, nil
}

type levelEventWire struct {
	LastUpdateID int64     `json:"lastUpdateId"`
	Bids         rawLevels `json:"bids"`
	Asks         rawLevels `json:"asks"`
}

func (Decoder) DecodeLevelEvent(raw []byte) (venue.LevelEvent, error) {
	var wire levelEventWire
	if err := json.Unmarshal(unwrap(raw), &wire); err != nil {
		return venue.LevelEvent{}, fmt.Errorf("%w: %v", venue.ErrMalformedFrame, err)
	}
	bids, err := parseLevels(wire.Bids)
	if err != nil {
		return venue.LevelEvent{}, err
	}
	asks, err := parseLevels(wire.Asks)
	if err != nil {
		return venue.LevelEvent{}, err
	}
	return venue.LevelEvent{
		SequenceID: wire.LastUpdateID,
		Bids:       bids,
		Asks:       asks,
	}, nil
}

type tradeWire struct {
	Type         string `json:"e"`
	EventTS      int64  `json:"E"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTS      int64  `json:"T"`
	BuyerIsMaker bool   `json:"m"`
}

// DecodeTrades decodes Binance's single-trade-per-message raw trade stream.
func (Decoder) DecodeTrades(raw []byte) ([]venue.Trade, error) {
	var wire tradeWire
	if err := json.Unmarshal(unwrap(raw), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrMalformedFrame, err)
	}
	if wire.Type != "" && wire.Type != "trade" {
		return nil, venue.ErrMalformedFrame
	}
	price, err := decimal.NewFromString(wire.Price)
	if err != nil {
		return nil, fmt.Errorf("binance: bad trade price %q: %w", wire.Price, err)
	}
	size, err := decimal.NewFromString(wire.Quantity)
	if err != nil {
		return nil, fmt.Errorf("binance: bad trade size %q: %w", wire.Quantity, err)
	}
	side := venue.Buy
	if wire.BuyerIsMaker {
		// buyer is the resting maker, so the trade was taker-initiated sell
		side = venue.Sell
	}
	return []venue.Trade{{
		VenueTS: wire.TradeTS,
		Price:   orderbook.PriceLevel{Price: price, Size: size},
		Side:    side,
		TradeID: fmt.Sprintf("%d", wire.TradeID),
	}}, nil
}

var _ venue.Decoder = Decoder{}
