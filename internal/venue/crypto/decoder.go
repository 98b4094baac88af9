// Package crypto decodes the Crypto.com-style venue's book and trade wire
// frames. This venue publishes full top-N level snapshots, never
// incremental deltas, so DecodeIncrementalEvent always returns
// venue.ErrUnsupportedStream; trades arrive batched, many per message,
// unlike Binance's one-trade-per-frame stream.
//
// Grounded on original_source/src/crypto/format/{mod,book,stream,trade}.rs.
package crypto

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sequex/depthgateway/internal/orderbook"
	"github.com/sequex/depthgateway/internal/venue"
)

// Decoder implements venue.Decoder for the Crypto.com-style venue.
type Decoder struct{}

func New() Decoder { return Decoder{} }

// quote is the wire shape of one book level: [price, size, order_numbers].
// order_numbers is the count of resting orders at that price and carries no
// size information of its own; it must not be used to repeat the insert.
type quote [3]string

func (q quote) level() (orderbook.PriceLevel, error) {
	price, err := decimal.NewFromString(q[0])
	if err != nil {
		return orderbook.PriceLevel{}, fmt.Errorf("crypto: bad price %q: %w", q[0], err)
	}
	size, err := decimal.NewFromString(q[1])
	if err != nil {
		return orderbook.PriceLevel{}, fmt.Errorf("crypto: bad size %q: %w", q[1], err)
	}
	return orderbook.PriceLevel{Price: price, Size: size}, nil
}

func parseQuotes(raw []quote) ([]orderbook.PriceLevel, error) {
	out := make([]orderbook.PriceLevel, 0, len(raw))
	for _, q := range raw {
		lvl, err := q.level()
		if err != nil {
			return nil, err
		}
		// Insert exactly once regardless of order_numbers: a resting-order
		// count is not a repeat-insert instruction.
		out = append(out, lvl)
	}
	return out, nil
}

type bookData struct {
	PublishTS      int64   `json:"t"`
	LastUpdateTS   int64   `json:"tt"`
	UpdateSequence int64   `json:"u"`
	ChecksumOrPrev int64   `json:"cs"`
	Asks           []quote `json:"asks"`
	Bids           []quote `json:"bids"`
}

type bookEvent struct {
	Channel        string     `json:"channel"`
	InstrumentName string     `json:"instrument_name"`
	Depth          int        `json:"depth"`
	Data           []bookData `json:"data"`
}

type bookEventStream struct {
	ID     int64     `json:"id"`
	Method string    `json:"method"`
	Code   int       `json:"code"`
	Result bookEvent `json:"result"`
}

func (Decoder) DecodeIncrementalEvent(raw []byte) (venue.IncrementalEvent, error) {
	return venue.IncrementalEvent{}, venue.ErrUnsupportedStream
}

func (Decoder) DecodeLevelEvent(raw []byte) (venue.LevelEvent, error) {
	var env bookEventStream
	if err := json.Unmarshal(raw, &env); err != nil {
		return venue.LevelEvent{}, fmt.Errorf("%w: %v", venue.ErrMalformedFrame, err)
	}
	if len(env.Result.Data) == 0 {
		return venue.LevelEvent{}, venue.ErrMalformedFrame
	}
	// A book frame carries exactly one snapshot per message; depth
	// subscriptions never batch multiple book states into one frame.
	data := env.Result.Data[0]
	bids, err := parseQuotes(data.Bids)
	if err != nil {
		return venue.LevelEvent{}, err
	}
	asks, err := parseQuotes(data.Asks)
	if err != nil {
		return venue.LevelEvent{}, err
	}
	return venue.LevelEvent{
		SequenceID: data.UpdateSequence,
		VenueTS:    data.PublishTS,
		Bids:       bids,
		Asks:       asks,
	}, nil
}

type tradeData struct {
	Side           string `json:"s"`
	Price          string `json:"p"`
	Quantity       string `json:"q"`
	TradeTS        int64  `json:"t"`
	TradeID        string `json:"d"`
	InstrumentName string `json:"i"`
}

type tradeEvent struct {
	Channel        string      `json:"channel"`
	InstrumentName string      `json:"instrument_name"`
	Data           []tradeData `json:"data"`
}

type tradeEventStream struct {
	ID     int64      `json:"id"`
	Method string     `json:"method"`
	Code   int        `json:"code"`
	Result tradeEvent `json:"result"`
}

// DecodeTrades decodes a batch of trades delivered in a single message.
func (Decoder) DecodeTrades(raw []byte) ([]venue.Trade, error) {
	var env tradeEventStream
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrMalformedFrame, err)
	}
	out := make([]venue.Trade, 0, len(env.Result.Data))
	for _, t := range env.Result.Data {
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			return nil, fmt.Errorf("crypto: bad trade price %q: %w", t.Price, err)
		}
		size, err := decimal.NewFromString(t.Quantity)
		if err != nil {
			return nil, fmt.Errorf("crypto: bad trade size %q: %w", t.Quantity, err)
		}
		side := venue.Buy
		if t.Side == "SELL" {
			side = venue.Sell
		}
		out = append(out, venue.Trade{
			VenueTS: t.TradeTS,
			Price:   orderbook.PriceLevel{Price: price, Size: size},
			Side:    side,
			TradeID: t.TradeID,
		})
	}
	return out, nil
}

var _ venue.Decoder = Decoder{}
