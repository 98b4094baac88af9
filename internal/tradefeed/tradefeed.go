// Package tradefeed implements the trade-tape subscription (C7): a simpler
// sibling of the depth subscription.Supervisor with no sequence algebra or
// bootstrap - every decoded frame is emitted as-is - but the same
// reconnect/backoff shape.
package tradefeed

import (
	"context"
	"time"

	"github.com/sequex/depthgateway/internal/venue"
	"github.com/sequex/depthgateway/pkg/logger"
)

const (
	backoffBase = 1 * time.Second
	backoffMax  = 30 * time.Second
)

// Source is the venue-specific glue for a trade stream: connecting and
// decoding trade batches.
type Source interface {
	// Connect opens the transport and returns a channel of decoded trade
	// batches (Binance delivers one trade per batch, Crypto.com many),
	// closed when the connection ends.
	Connect(ctx context.Context) (<-chan []venue.Trade, error)
	Close() error
}

// Supervisor runs one trade-stream subscription with reconnect/backoff.
type Supervisor struct {
	newSource func() Source
	venueName string
	symbol    string
	out       chan []venue.Trade
}

// New constructs a trade-stream Supervisor.
func New(venueName, symbol string, newSource func() Source) *Supervisor {
	return &Supervisor{
		newSource: newSource,
		venueName: venueName,
		symbol:    symbol,
		out:       make(chan []venue.Trade, 1024),
	}
}

// Trades returns the channel of trade batches, delivered as the venue sent
// them (Binance: length 1, Crypto.com: however many the frame carried), in
// input order.
func (s *Supervisor) Trades() <-chan []venue.Trade { return s.out }

// Run drives the subscription until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	log := logger.ForSubscription(s.venueName, s.symbol)
	backoff := backoffBase

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		src := s.newSource()
		batches, err := src.Connect(ctx)
		if err != nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("tradefeed: connect failed, retrying")
			if !s.sleep(ctx, &backoff) {
				return ctx.Err()
			}
			continue
		}

		backoff = backoffBase
	drain:
		for {
			select {
			case batch, ok := <-batches:
				if !ok {
					break drain
				}
				for i := range batch {
					batch[i].LocalTS = nowMillis()
				}
				select {
				case s.out <- batch:
				default:
					log.Warn().Msg("tradefeed: trade batch channel full, dropping batch")
				}
			case <-ctx.Done():
				src.Close()
				return ctx.Err()
			}
		}
		src.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Dur("backoff", backoff).Msg("tradefeed: stream ended, reconnecting")
		if !s.sleep(ctx, &backoff) {
			return ctx.Err()
		}
	}
}

func (s *Supervisor) sleep(ctx context.Context, backoff *time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
	}
	*backoff *= 2
	if *backoff > backoffMax {
		*backoff = backoffMax
	}
	return true
}

// nowMillis is a var so tests can override it, matching orderbook.Now.
var nowMillis = func() int64 { return time.Now().UnixMilli() }
