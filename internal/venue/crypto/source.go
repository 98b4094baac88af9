package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/sequex/depthgateway/internal/venue"
	"github.com/sequex/depthgateway/internal/wsconn"
)

// postConnectDelay is the settle time this venue requires between opening
// the WebSocket and sending its subscribe frame. Grounded on
// original_source/src/crypto/connection/abstraction.rs crypto_initialize(),
// which sleeps ~1s before subscribing.
const postConnectDelay = time.Second

// LevelSource implements subscription-style level-event streaming for the
// Crypto.com-style venue's book.<symbol> channel.
type LevelSource struct {
	url     string
	channel string
	decoder Decoder
	session *wsconn.Session
}

// NewLevelSource builds a LevelSource dialing url and subscribing to the
// given book channel (e.g. "book.BTC_USDT.10").
func NewLevelSource(url, channel string) *LevelSource {
	return &LevelSource{url: url, channel: channel, decoder: New()}
}

// Connect dials the book stream and returns a channel of decoded full-book
// replacements.
func (s *LevelSource) Connect(ctx context.Context) (<-chan venue.LevelEvent, error) {
	frame, err := SubscribeRequest(s.channel)
	if err != nil {
		return nil, fmt.Errorf("crypto: build subscribe frame: %w", err)
	}
	session, err := wsconn.Dial(ctx, s.url, wsconn.Options{
		PostConnectDelay: postConnectDelay,
		PostConnectFrame: frame,
		Control:          ControlHandler{},
	})
	if err != nil {
		return nil, fmt.Errorf("crypto: dial level stream: %w", err)
	}
	s.session = session

	out := make(chan venue.LevelEvent, 256)
	go func() {
		defer close(out)
		for raw := range session.Frames() {
			evt, err := s.decoder.DecodeLevelEvent(raw)
			if err != nil {
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close tears down the live session, if any.
func (s *LevelSource) Close() error {
	if s.session == nil {
		return nil
	}
	return s.session.Close()
}

// TradeSource implements tradefeed.Source for the Crypto.com-style venue's
// trade.<symbol> channel, which delivers batches of trades per message.
type TradeSource struct {
	url     string
	channel string
	decoder Decoder
	session *wsconn.Session
}

// NewTradeSource builds a TradeSource dialing url and subscribing to channel.
func NewTradeSource(url, channel string) *TradeSource {
	return &TradeSource{url: url, channel: channel, decoder: New()}
}

// Connect dials the trade stream and returns a channel of trade batches.
func (s *TradeSource) Connect(ctx context.Context) (<-chan []venue.Trade, error) {
	frame, err := SubscribeRequest(s.channel)
	if err != nil {
		return nil, fmt.Errorf("crypto: build subscribe frame: %w", err)
	}
	session, err := wsconn.Dial(ctx, s.url, wsconn.Options{
		PostConnectDelay: postConnectDelay,
		PostConnectFrame: frame,
		Control:          ControlHandler{},
	})
	if err != nil {
		return nil, fmt.Errorf("crypto: dial trade stream: %w", err)
	}
	s.session = session

	out := make(chan []venue.Trade, 256)
	go func() {
		defer close(out)
		for raw := range session.Frames() {
			trades, err := s.decoder.DecodeTrades(raw)
			if err != nil {
				continue
			}
			select {
			case out <- trades:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close tears down the live session, if any.
func (s *TradeSource) Close() error {
	if s.session == nil {
		return nil
	}
	return s.session.Close()
}
