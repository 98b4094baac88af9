package binance

import (
	"context"
	"fmt"

	"github.com/sequex/depthgateway/internal/venue"
	"github.com/sequex/depthgateway/internal/wsconn"
)

// DepthSource implements subscription.Source for a single Binance-style
// incremental-depth subscription: it owns the REST fetcher and dials the
// depth-update WebSocket, decoding every frame with Decoder.
type DepthSource struct {
	cfg     venue.Config
	decoder Decoder
	rest    *RestClient
	session *wsconn.Session
}

// NewDepthSource builds a DepthSource from a resolved venue.Config.
func NewDepthSource(cfg venue.Config) *DepthSource {
	return &DepthSource{cfg: cfg, decoder: New(), rest: NewRestClient(cfg.Rest)}
}

// Connect dials the depth-update stream and returns a channel of decoded
// incremental events.
func (s *DepthSource) Connect(ctx context.Context) (<-chan venue.IncrementalEvent, error) {
	session, err := wsconn.Dial(ctx, s.cfg.Depth, wsconn.Options{})
	if err != nil {
		return nil, fmt.Errorf("binance: dial depth stream: %w", err)
	}
	s.session = session

	out := make(chan venue.IncrementalEvent, 256)
	go func() {
		defer close(out)
		for raw := range session.Frames() {
			evt, err := s.decoder.DecodeIncrementalEvent(raw)
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

// FetchSnapshot implements orderbook.RestFetcher by delegating to the REST
// client built from the Config's snapshot URL.
func (s *DepthSource) FetchSnapshot(ctx context.Context) (venue.RestBootstrapSnapshot, error) {
	return s.rest.FetchSnapshot(ctx)
}

// Close tears down the live session, if any.
func (s *DepthSource) Close() error {
	if s.session == nil {
		return nil
	}
	return s.session.Close()
}

// LevelSource implements subscription-style level-event streaming for
// product classes where only a top-N book stream is requested (limit <= 0).
type LevelSource struct {
	cfg     venue.Config
	decoder Decoder
	session *wsconn.Session
}

// NewLevelSource builds a LevelSource from a resolved venue.Config.
func NewLevelSource(cfg venue.Config) *LevelSource {
	return &LevelSource{cfg: cfg, decoder: New()}
}

// Connect dials the level-event stream and returns a channel of decoded
// full-book replacements.
func (s *LevelSource) Connect(ctx context.Context) (<-chan venue.LevelEvent, error) {
	session, err := wsconn.Dial(ctx, s.cfg.LevelDepth, wsconn.Options{})
	if err != nil {
		return nil, fmt.Errorf("binance: dial level stream: %w", err)
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

// TradeSource implements tradefeed.Source for Binance's raw trade stream.
type TradeSource struct {
	url     string
	decoder Decoder
	session *wsconn.Session
}

// NewTradeSource builds a TradeSource dialing url (the venue's raw trade
// WebSocket endpoint).
func NewTradeSource(url string) *TradeSource {
	return &TradeSource{url: url, decoder: New()}
}

// Connect dials the trade stream and returns a channel of single-trade
// batches (Binance emits exactly one trade per frame).
func (s *TradeSource) Connect(ctx context.Context) (<-chan []venue.Trade, error) {
	session, err := wsconn.Dial(ctx, s.url, wsconn.Options{})
	if err != nil {
		return nil, fmt.Errorf("binance: dial trade stream: %w", err)
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
